package sandbox

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	apierrors "github.com/Apurer/pet-adoption-engine/internal/shared/errors"
)

const authUserKey = "sandbox.user_id"

// API serves the adoption REST contract over a Backend.
type API struct {
	backend   *Backend
	responder *apierrors.Responder
}

// NewAPI wires the handlers. Store sentinels that escape the backend are
// mapped to problem documents.
func NewAPI(backend *Backend) *API {
	responder := apierrors.NewResponder(func(err error) (apierrors.ProblemDetail, bool) {
		if errors.Is(err, ErrNotFound) {
			return apierrors.ErrNotFound.WithDetail(msgReferenceNotFound), true
		}
		return apierrors.ProblemDetail{}, false
	})
	return &API{backend: backend, responder: responder}
}

// NewRouter builds the gin engine with tracing and bearer authentication.
func NewRouter(api *API, serviceName string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if serviceName != "" {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	v1 := router.Group("/v1", api.authenticate)
	v1.GET("/pets", api.ListPets)
	v1.GET("/pets/:petId", api.GetPet)
	v1.PATCH("/pets/:petId/status", api.UpdatePetStatus)
	v1.GET("/reference/:kind/:id", api.GetReference)

	v1.GET("/users/:userId/favorites/:petId", api.GetFavorite)
	v1.PUT("/users/:userId/favorites/:petId", api.AddFavorite)
	v1.DELETE("/users/:userId/favorites/:petId", api.RemoveFavorite)
	v1.GET("/users/:userId/profile", api.GetProfile)
	v1.PUT("/users/:userId/profile", api.UpdateProfile)

	v1.PUT("/adoption-terms", api.SaveAdoptionTerm)
	v1.GET("/adoption-terms", api.GetAdoptionTerm)
	v1.POST("/adoption-terms/:termId/email", api.EmailAdoptionTerm)
	v1.PUT("/donation-terms", api.SaveDonationTerm)
	v1.GET("/donation-terms", api.GetDonationTerm)
	v1.POST("/donation-terms/:termId/email", api.EmailDonationTerm)

	v1.POST("/my-pets", api.CreateAssociation)
	return router
}

func (api *API) authenticate(c *gin.Context) {
	header := c.GetHeader(contract.HeaderAuthorization)
	token, _ := strings.CutPrefix(header, "Bearer ")
	userID, err := api.backend.Authenticate(c.Request.Context(), token)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Set(authUserKey, userID)
	c.Next()
}

func authUser(c *gin.Context) int64 {
	return c.GetInt64(authUserKey)
}

// Get /v1/pets
// Lists pets filtered by status and owner
func (api *API) ListPets(c *gin.Context) {
	var filter PetFilter
	query := c.Request.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &filter.Statuses); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "ownerId", query, &filter.OwnerID); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	pets, err := api.backend.Pets(c.Request.Context(), filter)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pets)
}

// Get /v1/pets/:petId
func (api *API) GetPet(c *gin.Context) {
	id, ok := api.pathID(c, "petId")
	if !ok {
		return
	}
	pet, err := api.backend.Pet(c.Request.Context(), id)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pet)
}

// Patch /v1/pets/:petId/status
func (api *API) UpdatePetStatus(c *gin.Context) {
	id, ok := api.pathID(c, "petId")
	if !ok {
		return
	}
	var payload contract.StatusUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	if err := api.backend.UpdateStatus(c.Request.Context(), authUser(c), id, payload.Status); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get /v1/reference/:kind/:id
func (api *API) GetReference(c *gin.Context) {
	id, ok := api.pathID(c, "id")
	if !ok {
		return
	}
	ref, err := api.backend.Reference(c.Request.Context(), c.Param("kind"), id)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// Get /v1/users/:userId/favorites/:petId
func (api *API) GetFavorite(c *gin.Context) {
	userID, petID, ok := api.favoriteIDs(c)
	if !ok {
		return
	}
	on, err := api.backend.Favorite(c.Request.Context(), authUser(c), userID, petID)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract.Favorite{UserID: userID, PetID: petID, Favorite: on})
}

// Put /v1/users/:userId/favorites/:petId
func (api *API) AddFavorite(c *gin.Context) {
	api.setFavorite(c, true)
}

// Delete /v1/users/:userId/favorites/:petId
func (api *API) RemoveFavorite(c *gin.Context) {
	api.setFavorite(c, false)
}

func (api *API) setFavorite(c *gin.Context, on bool) {
	userID, petID, ok := api.favoriteIDs(c)
	if !ok {
		return
	}
	if err := api.backend.SetFavorite(c.Request.Context(), authUser(c), userID, petID, on); err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) favoriteIDs(c *gin.Context) (int64, int64, bool) {
	userID, ok := api.pathID(c, "userId")
	if !ok {
		return 0, 0, false
	}
	petID, ok := api.pathID(c, "petId")
	return userID, petID, ok
}

// Get /v1/users/:userId/profile
func (api *API) GetProfile(c *gin.Context) {
	userID, ok := api.pathID(c, "userId")
	if !ok {
		return
	}
	profile, err := api.backend.Profile(c.Request.Context(), userID)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Put /v1/users/:userId/profile
func (api *API) UpdateProfile(c *gin.Context) {
	userID, ok := api.pathID(c, "userId")
	if !ok {
		return
	}
	var payload contract.Profile
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	payload.UserID = userID
	updated, err := api.backend.UpdateProfile(c.Request.Context(), authUser(c), payload)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Put /v1/adoption-terms
// Creates the adoption term, or replaces it when update is set
func (api *API) SaveAdoptionTerm(c *gin.Context) {
	var payload contract.SaveAdoptionTerm
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	term, err := api.backend.SaveAdoptionTerm(c.Request.Context(), authUser(c), payload)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// Get /v1/adoption-terms?petId=..&adopterId=..
func (api *API) GetAdoptionTerm(c *gin.Context) {
	query := c.Request.URL.Query()
	var petID, adopterID int64
	if err := runtime.BindQueryParameter("form", true, true, "petId", query, &petID); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "adopterId", query, &adopterID); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	term, err := api.backend.AdoptionTerm(c.Request.Context(), authUser(c), petID, adopterID)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// Post /v1/adoption-terms/:termId/email
func (api *API) EmailAdoptionTerm(c *gin.Context) {
	api.emailTerm(c, KindAdoption)
}

// Put /v1/donation-terms
func (api *API) SaveDonationTerm(c *gin.Context) {
	var payload contract.SaveDonationTerm
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	term, err := api.backend.SaveDonationTerm(c.Request.Context(), authUser(c), payload)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// Get /v1/donation-terms?donorId=..
func (api *API) GetDonationTerm(c *gin.Context) {
	var donorID int64
	if err := runtime.BindQueryParameter("form", true, true, "donorId", c.Request.URL.Query(), &donorID); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	term, err := api.backend.DonationTerm(c.Request.Context(), authUser(c), donorID)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// Post /v1/donation-terms/:termId/email
func (api *API) EmailDonationTerm(c *gin.Context) {
	api.emailTerm(c, KindDonation)
}

func (api *API) emailTerm(c *gin.Context, kind string) {
	termID, ok := api.pathID(c, "termId")
	if !ok {
		return
	}
	delivery, err := api.backend.EmailTerm(c.Request.Context(), authUser(c), kind, termID)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// Post /v1/my-pets
// Adds a pet to the caller's list; honours Idempotency-Key
func (api *API) CreateAssociation(c *gin.Context) {
	var payload contract.AssociationRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.responder.BadRequest(c, err.Error())
		return
	}
	status, body, err := api.backend.CreateAssociation(c.Request.Context(), authUser(c), c.GetHeader(contract.HeaderIdempotencyKey), payload)
	if err != nil {
		api.responder.RespondError(c, err)
		return
	}
	c.Data(status, contract.ContentTypeJSON, body)
}

// pathID binds an int64 path parameter the way generated servers do.
func (api *API) pathID(c *gin.Context, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		api.responder.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
