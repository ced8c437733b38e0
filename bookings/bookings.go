package bookings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"wayfare/apperror"
	"wayfare/email"
	"wayfare/factory"
	"wayfare/middleware"
	"wayfare/models"
	"wayfare/payment"
	"wayfare/rdx"
	"wayfare/store"
	"wayfare/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	opTimeout       = 10 * time.Second
	sessionTTL      = 30 * time.Minute
	maxWebhookBytes = 1 << 20
	webhookDedupTTL = 24 * time.Hour

	// SignatureHeader carries the provider's timestamped HMAC of the raw
	// webhook body.
	SignatureHeader = "Payment-Signature"
)

type Handlers struct {
	Bookings *store.Mongo[models.Booking]
	Tours    *store.Mongo[models.Tour]
	Users    *store.Mongo[models.User]
	Sessions *mongo.Collection
	Cache    *rdx.Cache
	Pay      *payment.Client
	Mailer   *email.Mailer
	Dev      bool
}

func (h *Handlers) List() httprouter.Handle {
	return factory.GetAll("bookings", h.Bookings, h.Dev, nil)
}

func (h *Handlers) Get() httprouter.Handle {
	return factory.GetOne("booking", h.Bookings, h.Dev, nil)
}

func (h *Handlers) Create() httprouter.Handle {
	return factory.CreateOne("booking", h.Bookings, h.Dev, nil, nil)
}

func (h *Handlers) Update() httprouter.Handle {
	return factory.UpdateOne("booking", h.Bookings, h.Dev, nil)
}

func (h *Handlers) Delete() httprouter.Handle {
	return factory.DeleteOne("booking", h.Bookings, h.Dev, nil)
}

func checkoutKey(userID, tourID string) string {
	return fmt.Sprintf("checkout:%s:%s", userID, tourID)
}

// CheckoutSession creates (or replays) a payment session for one tour at its
// current price. Repeat requests from the same user for the same tour get the
// cached session back instead of a fresh one.
func (h *Handlers) CheckoutSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}

	tour, err := h.Tours.FindByID(ctx, ps.ByName("tourId"))
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "tour"), h.Dev)
		return
	}

	key := checkoutKey(principal.ID, tour.ID)
	var cached payment.CheckoutSession
	if err := h.Cache.GetJSON(ctx, key, &cached); err == nil && time.Now().Before(cached.ExpiresAt) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "success", "session": cached})
		return
	}

	session, err := h.Pay.CreateCheckoutSession(ctx, tour, principal)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	// The session outlives this request; the webhook reads it back to build
	// the booking, and the TTL index reaps abandoned ones.
	if _, err := h.Sessions.InsertOne(ctx, session); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	if err := h.Cache.SetJSON(ctx, key, session, sessionTTL); err != nil {
		slog.Warn("checkout session cache write failed", "err", err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "success", "session": session})
}

// Webhook receives signed provider events. An unverifiable signature is
// rejected before anything in the payload is read. Once the signature checks
// out the provider always gets a 200 back, even when processing fails; those
// failures are logged for operators, not bounced for redelivery storms.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		apperror.Respond(w, apperror.BadRequest("Unreadable webhook body"), h.Dev)
		return
	}

	event, err := payment.ConstructEvent(body, r.Header.Get(SignatureHeader), h.Pay.WebhookSecret)
	if err != nil {
		slog.Warn("webhook rejected", "err", err)
		apperror.Respond(w, apperror.BadRequest("Webhook signature verification failed"), h.Dev)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	if event.Type == payment.EventCheckoutCompleted {
		if err := h.processCheckout(ctx, event); err != nil {
			slog.Error("checkout processing failed", "event", event.ID, "err", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"received": true})
}

func (h *Handlers) processCheckout(ctx context.Context, event *payment.Event) error {
	// Providers redeliver; the first delivery wins.
	fresh, err := h.Cache.SetNX(ctx, "webhook:"+event.ID, "1", webhookDedupTTL)
	if err != nil {
		slog.Warn("webhook dedup check failed", "event", event.ID, "err", err)
	} else if !fresh {
		return nil
	}

	obj := event.Data.Object
	booking := models.Booking{
		TourID: obj.Metadata.TourID,
		UserID: obj.ClientReferenceID,
		Price:  float64(obj.AmountTotal) / 100,
	}

	// Prefer the session we stored at checkout time over payload fields.
	var session payment.CheckoutSession
	err = h.Sessions.FindOne(ctx, bson.M{"id": obj.ID}).Decode(&session)
	if err == nil {
		booking.TourID = session.TourID
		booking.UserID = session.UserID
		booking.Price = session.Amount
	} else if err != mongo.ErrNoDocuments {
		return fmt.Errorf("load checkout session %s: %w", obj.ID, err)
	}

	if err := h.Bookings.Create(ctx, &booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	_, _ = h.Sessions.DeleteOne(ctx, bson.M{"id": obj.ID})
	_ = h.Cache.Del(ctx, checkoutKey(booking.UserID, booking.TourID))

	h.sendConfirmation(ctx, &booking)
	return nil
}

func (h *Handlers) sendConfirmation(ctx context.Context, booking *models.Booking) {
	user, err := h.Users.FindByID(ctx, booking.UserID)
	if err != nil {
		slog.Warn("confirmation mail skipped, user lookup failed", "user", booking.UserID, "err", err)
		return
	}
	tourName := booking.TourID
	if tour, err := h.Tours.FindByID(ctx, booking.TourID); err == nil {
		tourName = tour.Name
	}
	if err := h.Mailer.SendBookingConfirmation(user, tourName, booking.Price); err != nil {
		slog.Warn("confirmation mail failed", "booking", booking.ID, "err", err)
	}
}
