package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type visitorSaver interface {
	Save(ctx context.Context, visitor *session.Visitor) error
}

// Service exposes the cart engine. Every operation takes the shopper explicitly:
// a signed-in user, an anonymous visitor session, or both right after login.
type Service interface {
	Resolve(ctx context.Context, shopper session.Shopper) (*CartView, error)
	AddItem(ctx context.Context, shopper session.Shopper, input AddItemInput) (*MutationResult, error)
	SetQuantity(ctx context.Context, shopper session.Shopper, menuItemID uuid.UUID, quantity int) (*MutationResult, error)
	RemoveItem(ctx context.Context, shopper session.Shopper, menuItemID uuid.UUID) (*MutationResult, error)
	Clear(ctx context.Context, shopper session.Shopper) error
	TotalItemCount(ctx context.Context, shopper session.Shopper) int64
	MergeGuestCart(ctx context.Context, shopper session.Shopper) (bool, error)
}

// ServiceParams bundles the cart engine dependencies.
type ServiceParams struct {
	Repo     CartRepository
	Menu     menuLookup
	Tx       txRunner
	Visitors visitorSaver
	Metrics  *metrics.CommerceMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     CartRepository
	menu     menuLookup
	tx       txRunner
	visitors visitorSaver
	metrics  *metrics.CommerceMetrics
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Menu == nil {
		return nil, fmt.Errorf("menu lookup required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		menu:     params.Menu,
		tx:       params.Tx,
		visitors: params.Visitors,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Resolve(ctx context.Context, shopper session.Shopper) (*CartView, error) {
	if err := requireShopper(shopper); err != nil {
		return nil, err
	}
	if _, err := s.MergeGuestCart(ctx, shopper); err != nil {
		return nil, err
	}

	var view *CartView
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		cart, err := s.locate(ctx, r, shopper)
		if err != nil {
			return err
		}
		if cart == nil {
			view = emptyView()
			return nil
		}
		lines, err := r.ListLines(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
		}
		view = toCartView(cart, lines)
		return nil
	})
	if err != nil {
		return nil, s.surface("resolve", err)
	}
	s.remember(ctx, shopper, view.CartID)
	return view, nil
}

func (s *service) AddItem(ctx context.Context, shopper session.Shopper, input AddItemInput) (*MutationResult, error) {
	if err := requireShopper(shopper); err != nil {
		return nil, err
	}
	mode := input.Mode
	if mode == "" {
		mode = ModeIncrement
	}
	if mode != ModeIncrement && mode != ModeReplace {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be increment or replace")
	}
	if err := s.requireAvailable(ctx, input.MenuItemID); err != nil {
		return nil, err
	}
	if _, err := s.MergeGuestCart(ctx, shopper); err != nil {
		return nil, err
	}

	return s.mutate(ctx, shopper, "add_item", input.MenuItemID, func(current int) int {
		if mode == ModeReplace {
			return input.Quantity
		}
		return current + input.Quantity
	})
}

func (s *service) SetQuantity(ctx context.Context, shopper session.Shopper, menuItemID uuid.UUID, quantity int) (*MutationResult, error) {
	if err := requireShopper(shopper); err != nil {
		return nil, err
	}
	if quantity > 0 {
		if err := s.requireAvailable(ctx, menuItemID); err != nil {
			return nil, err
		}
	}
	if _, err := s.MergeGuestCart(ctx, shopper); err != nil {
		return nil, err
	}
	return s.mutate(ctx, shopper, "set_quantity", menuItemID, func(int) int { return quantity })
}

func (s *service) RemoveItem(ctx context.Context, shopper session.Shopper, menuItemID uuid.UUID) (*MutationResult, error) {
	return s.SetQuantity(ctx, shopper, menuItemID, 0)
}

func (s *service) Clear(ctx context.Context, shopper session.Shopper) error {
	if err := requireShopper(shopper); err != nil {
		return err
	}
	if _, err := s.MergeGuestCart(ctx, shopper); err != nil {
		return err
	}

	var cartID *uuid.UUID
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		cartID = nil
		r := s.repo.WithTx(tx)
		cart, err := s.locate(ctx, r, shopper)
		if err != nil || cart == nil {
			return err
		}
		if _, err := lockCart(ctx, r, cart.ID); err != nil {
			return err
		}
		if err := r.DeleteLines(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
		}
		if cart.IsGuest() {
			if err := r.DeleteCart(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest cart")
			}
			return nil
		}
		id := cart.ID
		cartID = &id
		return nil
	})
	if err != nil {
		return s.surface("clear", err)
	}
	s.remember(ctx, shopper, cartID)
	return nil
}

// TotalItemCount is the badge count over the cart Resolve would return, so a
// pending guest cart is merged first. It never fails: errors are logged and
// reported as zero.
func (s *service) TotalItemCount(ctx context.Context, shopper session.Shopper) int64 {
	if requireShopper(shopper) != nil {
		return 0
	}
	if _, err := s.MergeGuestCart(ctx, shopper); err != nil {
		if s.logg != nil {
			s.logg.WarnErr(ctx, "cart.count_failed", err)
		}
		return 0
	}
	cart, err := s.locate(ctx, s.repo, shopper)
	if err == nil && cart == nil {
		return 0
	}
	var total int64
	if err == nil {
		total, err = s.repo.SumQuantity(ctx, cart.ID)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.WarnErr(ctx, "cart.count_failed", err)
		}
		return 0
	}
	return total
}

// mutate applies next to the current quantity of one line under the cart and
// line row locks. A non-positive result deletes the line; a guest cart left
// without lines is deleted with it.
func (s *service) mutate(ctx context.Context, shopper session.Shopper, op string, menuItemID uuid.UUID, next func(current int) int) (*MutationResult, error) {
	var (
		result *MutationResult
		cartID *uuid.UUID
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		result, cartID = nil, nil
		r := s.repo.WithTx(tx)

		cart, err := s.locate(ctx, r, shopper)
		if err != nil {
			return err
		}
		if cart == nil {
			if next(0) <= 0 {
				result = &MutationResult{Removed: true}
				return nil
			}
			if cart, err = ensure(ctx, r, shopper); err != nil {
				return err
			}
		}
		if _, err := lockCart(ctx, r, cart.ID); err != nil {
			return err
		}

		line, err := r.LockLine(ctx, cart.ID, menuItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart line")
		}
		current := 0
		if line != nil {
			current = line.Quantity
		}
		quantity := next(current)

		switch {
		case quantity <= 0 && line != nil:
			err = r.DeleteLine(ctx, line.ID)
		case quantity <= 0:
		case line != nil:
			err = r.UpdateLineQuantity(ctx, line.ID, quantity)
		default:
			err = r.CreateLine(ctx, &models.CartItem{CartID: cart.ID, MenuItemID: menuItemID, Quantity: quantity})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write cart line")
		}

		lines, err := r.ListLines(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
		}
		if len(lines) == 0 && cart.IsGuest() {
			if err := r.DeleteCart(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete empty guest cart")
			}
			result = &MutationResult{Removed: true}
			return nil
		}

		id := cart.ID
		cartID = &id
		view := toCartView(cart, lines)
		result = &MutationResult{Removed: quantity <= 0, ItemCount: view.ItemCount}
		if quantity > 0 {
			for i := range view.Items {
				if view.Items[i].MenuItemID == menuItemID {
					result.Line = &view.Items[i]
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.surface(op, err)
	}
	s.remember(ctx, shopper, cartID)
	return result, nil
}

// locate finds the shopper's cart without creating it, preferring the id cached
// in the session when it still belongs to the shopper.
func (s *service) locate(ctx context.Context, r CartRepository, shopper session.Shopper) (*models.Cart, error) {
	if cached := shopper.Visitor.CachedCartID(); cached != nil {
		cart, err := r.FindByID(ctx, *cached)
		if err == nil && owns(cart, shopper) {
			return cart, nil
		}
		if err != nil && !repo.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cached cart")
		}
	}

	var (
		cart *models.Cart
		err  error
	)
	if shopper.IsAuthenticated() {
		cart, err = r.FindByUser(ctx, *shopper.UserID)
	} else {
		cart, err = r.FindBySession(ctx, shopper.SessionKey())
	}
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart")
	}
	return cart, nil
}

func (s *service) requireAvailable(ctx context.Context, menuItemID uuid.UUID) error {
	if menuItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu item id is required")
	}
	if _, err := s.menu.FindAvailableItem(ctx, menuItemID); err != nil {
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu item")
	}
	return nil
}

// remember keeps the session's cached cart id in sync. The bag is only a cache,
// so a failed save is logged and otherwise ignored.
func (s *service) remember(ctx context.Context, shopper session.Shopper, cartID *uuid.UUID) {
	visitor := shopper.Visitor
	if visitor == nil || sameID(visitor.CachedCartID(), cartID) {
		return
	}
	if cartID == nil {
		visitor.ForgetCart()
	} else {
		visitor.RememberCart(*cartID)
	}
	if s.visitors == nil {
		return
	}
	if err := s.visitors.Save(ctx, visitor); err != nil && s.logg != nil {
		s.logg.WarnErr(ctx, "cart.session_save_failed", err)
	}
}

func (s *service) surface(op string, err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		s.metrics.IncConflict("cart_" + op)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart "+op)
}

func ensure(ctx context.Context, r CartRepository, shopper session.Shopper) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	if shopper.IsAuthenticated() {
		cart, err = r.EnsureForUser(ctx, *shopper.UserID)
	} else {
		cart, err = r.EnsureForSession(ctx, shopper.SessionKey())
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return cart, nil
}

func lockCart(ctx context.Context, r CartRepository, id uuid.UUID) (*models.Cart, error) {
	cart, err := r.LockCart(ctx, id)
	if repo.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "cart was removed concurrently")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
	}
	return cart, nil
}

func requireShopper(shopper session.Shopper) error {
	if shopper.IsAuthenticated() || shopper.SessionKey() != "" {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
}

func owns(cart *models.Cart, shopper session.Shopper) bool {
	if shopper.IsAuthenticated() {
		return cart.UserID != nil && *cart.UserID == *shopper.UserID
	}
	return cart.SessionKey != nil && *cart.SessionKey == shopper.SessionKey()
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
