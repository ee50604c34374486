package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/menu"
	"github.com/vasiliy-maslov/table-order/internal/notify"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

var (
	ErrInvalidID            = errors.New("invalid order id")
	ErrInvalidStatus        = errors.New("invalid status value")
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrUnknownItem          = errors.New("menu item not found or inactive")
	ErrDuplicateRequest     = errors.New("order with this idempotency key was already submitted")
	ErrTotalTooLarge        = fmt.Errorf("order total must not exceed %s", menu.MaxPrice)
)

// MenuLookup resolves the menu items referenced by a new order.
type MenuLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]menu.MenuItem, error)
}

type Service interface {
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, in CreateInput) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}

type service struct {
	repo     Repository
	menus    MenuLookup
	claimer  KeyClaimer
	notifier notify.Notifier
	now      func() time.Time
}

// NewService wires the order service. A nil claimer disables idempotency
// keys and a nil notifier disables confirmations.
func NewService(repo Repository, menus MenuLookup, claimer KeyClaimer, notifier notify.Notifier) Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &service{
		repo:     repo,
		menus:    menus,
		claimer:  claimer,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	if !db.ValidID(id) {
		return nil, ErrInvalidID
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("order_id", id).Msg("service: order not found by id")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !db.ValidID(id) {
		return nil, ErrInvalidID
	}
	if !status.Valid() {
		log.Warn().Str("order_id", id).Stringer("new_status", status).Msg("service: rejected unknown status")
		return nil, ErrInvalidStatus
	}

	o, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("order_id", id).Stringer("new_status", status).Msg("service: order not found, cannot update status")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("order_id", id).Stringer("new_status", status).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Str("order_id", id).Stringer("new_status", status).Msg("service: order status updated")
	return o, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (o *Order, err error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.TableNumber = strings.TrimSpace(in.TableNumber)

	if err := validate.Required(
		"userId", in.UserID,
		"displayName", in.DisplayName,
		"tableNumber", in.TableNumber,
	); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var payment *PaymentMethod
	if in.PaymentMethod != "" {
		pm := PaymentMethod(in.PaymentMethod)
		if !pm.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, in.PaymentMethod)
		}
		payment = &pm
	}

	ids, err := referencedItems(in.Items)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" && s.claimer != nil {
		claimed, claimErr := s.claimer.Claim(ctx, key)
		if claimErr != nil {
			log.Error().Err(claimErr).Msg("service: failed to claim idempotency key")
			return nil, fmt.Errorf("service: failed to claim idempotency key: %w", claimErr)
		}
		if !claimed {
			log.Warn().Str("idempotency_key", key).Msg("service: duplicate order submission")
			return nil, ErrDuplicateRequest
		}
		// err is the named result; the claim only survives a stored order.
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.claimer.Release(context.WithoutCancel(ctx), key); relErr != nil {
				log.Error().Err(relErr).Str("idempotency_key", key).Msg("service: failed to release idempotency key")
			}
		}()
	}

	items, err := s.menus.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to resolve menu items for order")
		return nil, fmt.Errorf("service: failed to resolve menu items: %w", err)
	}
	catalog := make(map[string]menu.MenuItem, len(items))
	for _, item := range items {
		if item.IsActive {
			catalog[item.ID] = item
		}
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
	}

	now := s.now()
	code, err := newOrderCode(now)
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order code: %w", err)
	}

	o = &Order{
		ID:            db.NewID(),
		Code:          code,
		UserID:        in.UserID,
		DisplayName:   in.DisplayName,
		TableNumber:   in.TableNumber,
		PaymentMethod: payment,
		Status:        StatusReceived,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	total := decimal.Zero
	addLine := func(itemID string, quantity int, parent *string) {
		item := catalog[itemID]
		o.Lines = append(o.Lines, Line{
			ID:           db.NewID(),
			OrderID:      o.ID,
			ItemID:       item.ID,
			Name:         item.NameEn,
			Quantity:     quantity,
			Price:        item.Price,
			ParentItemID: parent,
			CreatedAt:    now,
		})
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(quantity))))
	}
	for _, it := range in.Items {
		addLine(it.ItemID, it.Quantity, nil)
		for _, addon := range it.Addons {
			parent := it.ItemID
			addLine(addon.ItemID, addon.Quantity, &parent)
		}
	}
	if total.GreaterThan(menu.MaxPrice) {
		return nil, fmt.Errorf("%w: %s", ErrTotalTooLarge, total)
	}
	o.Total = total

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Str("user_id", in.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Str("order_id", o.ID).Str("order_code", o.Code).Str("user_id", o.UserID).Msg("service: order created")

	if err := s.notifier.Push(ctx, o.UserID, notify.OrderConfirmation(o.TableNumber, o.Code)); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("service: failed to send order confirmation")
	}
	return o, nil
}

// referencedItems validates quantities and ids and returns the distinct
// menu item ids in first-seen order.
func referencedItems(items []ItemInput) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	check := func(id string, quantity int) error {
		if !db.ValidID(id) {
			return fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
		if quantity < 1 {
			return fmt.Errorf("%w: item %s", ErrInvalidQuantity, id)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	}

	for _, it := range items {
		if err := check(it.ItemID, it.Quantity); err != nil {
			return nil, err
		}
		for _, addon := range it.Addons {
			if err := check(addon.ItemID, addon.Quantity); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// newOrderCode returns a code like ORD-20250101-3FA2C1.
func newOrderCode(now time.Time) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	return "ORD-" + now.Format("20060102") + "-" + suffix, nil
}
