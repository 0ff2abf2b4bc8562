package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

// View is a snapshot of a controller for rendering.
type View struct {
	Key         domain.Key
	State       domain.State
	Update      bool
	Term        *domain.Term
	Draft       domain.Draft
	StaleFields []string
	// Notices are the messages produced by the call that returned this view.
	Notices []domain.Notify
	// FormOpen is set when the signature form should be shown.
	FormOpen bool
}

// Controller drives the lifecycle of one term.
type Controller struct {
	terms *Terms

	mu       sync.Mutex
	machine  domain.Machine
	donor    domain.Party
	adopter  *domain.Party
	formOpen bool
	closed   bool
}

// run carries the notices of one controller call.
type run struct {
	notices []domain.Notify
}

// Load fetches the term and the live profiles and checks the term for staleness.
func (c *Controller) Load(ctx context.Context) (View, error) {
	release, err := c.acquire()
	if err != nil {
		return View{}, err
	}
	defer release()

	r := &run{}
	if err := c.load(ctx, r); err != nil {
		return c.view(r), err
	}
	return c.view(r), nil
}

// Compose opens the signature form for a new or stale term.
func (c *Controller) Compose() (View, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return View{}, ErrControllerClosed
	}
	r := &run{}
	if err := c.apply(context.Background(), r, domain.Compose{}); err != nil {
		return c.view(r), err
	}
	return c.view(r), nil
}

// Submit validates the form and creates or updates the term. Email is a
// separate call.
func (c *Controller) Submit(ctx context.Context, signature, observations string) (View, error) {
	release, err := c.acquire()
	if err != nil {
		return View{}, err
	}
	defer release()

	r := &run{}
	if err := c.apply(ctx, r, domain.Submit{Signature: signature, Observations: observations}); err != nil {
		return c.view(r), err
	}
	return c.view(r), nil
}

// SendEmail asks the backend to email the created term to both parties. A
// partial delivery returns a *domain.DeliveryError and leaves the term Created.
func (c *Controller) SendEmail(ctx context.Context) (View, error) {
	release, err := c.acquire()
	if err != nil {
		return View{}, err
	}
	defer release()

	r := &run{}
	if err := c.apply(ctx, r, domain.RequestEmail{}); err != nil {
		return c.view(r), err
	}
	return c.view(r), nil
}

// View returns the current state without notices.
func (c *Controller) View() View {
	return c.view(&run{})
}

// Resigned reports whether a stale term was re-signed through this controller.
func (c *Controller) Resigned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Resigned
}

// Close detaches the controller. Results of calls still in flight no longer
// change its state, but a confirmed email is still recorded in the sent cache.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Controller) acquire() (func(), error) {
	c.mu.Lock()
	closed, key := c.closed, c.machine.Key
	c.mu.Unlock()
	if closed {
		return nil, ErrControllerClosed
	}
	release, ok := c.terms.locks.TryLock(key.String())
	if !ok {
		return nil, ErrTermBusy
	}
	return release, nil
}

func (c *Controller) load(ctx context.Context, r *run) error {
	key := c.key()
	donor, adopter, err := c.terms.parties(ctx, key)
	if err != nil {
		return err
	}
	term, err := c.terms.fetch(ctx, key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.closed {
		c.donor, c.adopter = donor, adopter
	}
	c.mu.Unlock()
	return c.apply(ctx, r, domain.Loaded{Term: term, Donor: donor, Adopter: adopter})
}

// apply runs one transition and then its effects. Effects may feed further
// events back into the machine.
func (c *Controller) apply(ctx context.Context, r *run, ev domain.Event) error {
	c.mu.Lock()
	next, effects, err := domain.Transition(c.machine, ev)
	closed := c.closed
	if err == nil && !closed {
		prevResigned := c.machine.Resigned
		c.machine = next
		if next.Resigned && !prevResigned {
			c.terms.markResigned(next.Key)
		}
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	for _, effect := range effects {
		if closed {
			if mark, ok := effect.(domain.MarkEmailed); ok {
				c.markEmailed(ctx, mark)
			}
			continue
		}
		if err := c.perform(ctx, r, effect); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) perform(ctx context.Context, r *run, effect domain.Effect) error {
	key := c.key()
	switch e := effect.(type) {
	case domain.ShowForm:
		c.mu.Lock()
		c.formOpen = true
		c.mu.Unlock()
	case domain.Notify:
		r.notices = append(r.notices, e)
		level := slog.LevelInfo
		if e.Level == domain.NoticeError {
			level = slog.LevelWarn
		}
		c.terms.logger.LogAttrs(ctx, level, e.Message, slog.String("term.key", key.String()))
	case domain.SaveTerm:
		return c.save(ctx, r, key, e)
	case domain.FetchTerm:
		term, err := c.terms.fetch(ctx, key)
		if err != nil {
			return err
		}
		c.mu.Lock()
		donor, adopter := c.donor, c.adopter
		c.mu.Unlock()
		return c.apply(ctx, r, domain.Loaded{Term: term, Donor: donor, Adopter: adopter})
	case domain.SendEmail:
		return c.send(ctx, r, key, e)
	case domain.MarkEmailed:
		c.markEmailed(ctx, e)
	case domain.PresentSponsor:
		c.terms.gate.Present(ctx)
	}
	return nil
}

func (c *Controller) save(ctx context.Context, r *run, key domain.Key, e domain.SaveTerm) error {
	c.mu.Lock()
	c.formOpen = false
	c.mu.Unlock()
	term, err := c.terms.gateway.Save(ctx, saveRequest(key, e))
	if err == nil {
		return c.apply(ctx, r, domain.Saved{Term: term})
	}
	switch remoteerr.KindOf(err) {
	case remoteerr.KindConflict:
		return c.apply(ctx, r, domain.AlreadyExists{})
	case remoteerr.KindSelfAction:
		if applyErr := c.apply(ctx, r, domain.SelfAdoption{Message: remoteerr.MessageOf(err)}); applyErr != nil {
			return applyErr
		}
		return fmt.Errorf("%w: %w", domain.ErrBlocked, err)
	case remoteerr.KindSession:
		return err
	default:
		if applyErr := c.apply(ctx, r, domain.SaveFailed{Err: err}); applyErr != nil {
			return applyErr
		}
		return err
	}
}

func (c *Controller) send(ctx context.Context, r *run, key domain.Key, e domain.SendEmail) error {
	delivery, err := c.terms.gateway.SendEmail(ctx, key.Kind, e.TermID)
	if err != nil {
		if applyErr := c.apply(ctx, r, domain.EmailFailed{Delivery: delivery, Err: err}); applyErr != nil {
			return applyErr
		}
		return err
	}
	if err := c.apply(ctx, r, domain.EmailDelivered{Delivery: delivery}); err != nil {
		return err
	}
	if !delivery.Complete() {
		return &domain.DeliveryError{Failed: delivery.Failed()}
	}
	return nil
}

func (c *Controller) markEmailed(ctx context.Context, e domain.MarkEmailed) {
	key := c.key()
	err := c.terms.cache.MarkEmailed(context.WithoutCancel(ctx), key.AdopterID, e.PetID)
	if err != nil {
		c.terms.logger.LogAttrs(ctx, slog.LevelWarn, "emailed term not cached",
			slog.Int64("pet.id", e.PetID), slog.String("error", err.Error()))
	}
}

func (c *Controller) key() domain.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Key
}

func (c *Controller) view(r *run) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.machine
	return View{
		Key:         m.Key,
		State:       m.State,
		Update:      m.Update,
		Term:        m.Term.Clone(),
		Draft:       m.Draft,
		StaleFields: append([]string(nil), m.StaleFields...),
		Notices:     r.notices,
		FormOpen:    c.formOpen && (m.State == domain.StateNone || m.State == domain.StateDrafting),
	}
}

func saveRequest(key domain.Key, e domain.SaveTerm) ports.SaveRequest {
	return ports.SaveRequest{
		Key:          key,
		Update:       e.Update,
		Signature:    e.Draft.Signature,
		Observations: e.Draft.Observations,
	}
}

// IsFatal reports whether err ends the session rather than the operation.
func IsFatal(err error) bool {
	return errors.Is(err, remoteerr.ErrSession)
}
