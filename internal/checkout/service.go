package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tablebite-backend/internal/cart"
	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/orders"
	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/internal/rewards"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	pkgcheckout "github.com/angelmondragon/tablebite-backend/pkg/checkout"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type guestMerger interface {
	MergeGuestCart(ctx context.Context, shopper session.Shopper) (bool, error)
}

// Service turns the signed-in user's cart into an order.
type Service interface {
	Execute(ctx context.Context, shopper session.Shopper, info pkgcheckout.DeliveryInfo) (*Result, error)
}

// Result is the placed order plus the loyalty side effects of placing it.
type Result struct {
	Order          orders.OrderDTO `json:"order"`
	AppliedRewards []string        `json:"applied_rewards"`
	PointsBalance  int64           `json:"points_balance"`
	PromotedToVIP  bool            `json:"promoted_to_vip"`
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Tx      txRunner
	Carts   cart.CartRepository
	Orders  orders.Repository
	Merger  guestMerger
	Program loyalty.Program
	Pricing pkgcheckout.Pricing
	Clock   func() time.Time
	Metrics *metrics.CommerceMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	carts   cart.CartRepository
	orders  orders.Repository
	merger  guestMerger
	program loyalty.Program
	pricing pkgcheckout.Pricing
	now     func() time.Time
	metrics *metrics.CommerceMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:      params.Tx,
		carts:   params.Carts,
		orders:  params.Orders,
		merger:  params.Merger,
		program: params.Program,
		pricing: params.Pricing,
		now:     clock,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

type placement struct {
	order    *models.Order
	profile  *models.LoyaltyProfile
	promoted bool
	rewards  []string
}

// Execute validates the delivery details and then, in one transaction, prices
// the cart, writes the order, credits points, consumes staged benefits and
// empties the cart. Any failure rolls all of it back and leaves the cart intact.
func (s *service) Execute(ctx context.Context, shopper session.Shopper, info pkgcheckout.DeliveryInfo) (*Result, error) {
	if !shopper.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	method, err := pkgcheckout.ValidateDeliveryInfo(info)
	if err != nil {
		s.metrics.ObserveCheckout(string(pkgerrors.CodeValidation), 0)
		return nil, err
	}
	info = info.Normalize()

	if s.merger != nil {
		if _, err := s.merger.MergeGuestCart(ctx, shopper); err != nil {
			return nil, s.fail(err)
		}
	}

	userID := *shopper.UserID
	var placed placement
	err = s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		placed = placement{}
		now := s.now()
		carts := s.carts.WithTx(tx)

		userCart, err := carts.FindByUser(ctx, userID)
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart")
		}
		if _, err := carts.LockCart(ctx, userCart.ID); err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeConcurrency, "cart changed during checkout")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
		}
		lines, err := carts.ListLines(ctx, userCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
		}
		items, subtotal, err := snapshot(lines)
		if err != nil {
			return err
		}

		profiles := loyalty.NewRepository(tx)
		profile, err := profiles.LockByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock profile")
		}

		staged := rewards.NewRepository(tx)
		discounts, err := staged.LockOpen(ctx, userID, enums.BenefitKindDiscount, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load staged discount")
		}
		freebies, err := staged.LockOpen(ctx, userID, enums.BenefitKindReward, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load staged rewards")
		}

		var (
			manual   *decimal.Decimal
			consumed []uuid.UUID
		)
		if len(discounts) > 0 {
			rate, err := decimal.NewFromString(discounts[0].DiscountRate)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse staged discount rate")
			}
			manual = &rate
			consumed = append(consumed, discounts[0].ID)
		}
		totals := s.pricing.Compute(subtotal, manual, profile.IsVIP)

		order := &models.Order{
			UserID:              userID,
			Status:              enums.OrderStatusPending,
			Subtotal:            totals.Subtotal,
			DiscountApplied:     totals.Discount,
			DiscountSource:      totals.Source,
			TotalAmount:         totals.Total,
			PointsEarned:        totals.PointsEarned,
			CustomerName:        info.CustomerName,
			Phone:               info.Phone,
			DeliveryAddress:     info.Address,
			PaymentMethod:       method,
			SpecialInstructions: info.SpecialInstructions,
			Items:               items,
			CreatedAt:           now,
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		promoted, err := s.program.AddPoints(profile, totals.PointsEarned)
		if err != nil {
			return err
		}
		if profile.Address == "" {
			profile.Address = info.Address
			if profile.Phone == "" {
				profile.Phone = info.Phone
			}
		}
		if err := profiles.Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit points")
		}

		redemptions := make([]uuid.UUID, 0, len(freebies))
		for _, b := range freebies {
			consumed = append(consumed, b.ID)
			if b.RedemptionID != nil {
				redemptions = append(redemptions, *b.RedemptionID)
			}
		}
		won, err := staged.Consume(ctx, consumed, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume staged benefits")
		}
		if won != int64(len(consumed)) {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "staged benefit already used")
		}
		if err := staged.LinkRedemptions(ctx, redemptions, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link redemptions")
		}
		names, err := staged.RewardNames(ctx, redemptions)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reward names")
		}

		if err := carts.DeleteLines(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		placed.order = order
		placed.profile = profile
		placed.promoted = promoted
		placed.rewards = make([]string, 0, len(redemptions))
		for _, id := range redemptions {
			placed.rewards = append(placed.rewards, names[id])
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.metrics.ObserveCheckout("success", placed.order.PointsEarned)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        placed.order.ID.String(),
			"user_id":         userID.String(),
			"subtotal":        placed.order.Subtotal,
			"discount":        placed.order.DiscountApplied,
			"discount_source": string(placed.order.DiscountSource),
			"total":           placed.order.TotalAmount,
			"points_earned":   placed.order.PointsEarned,
			"promoted":        placed.promoted,
		})
		s.logg.Info(logCtx, "checkout.completed")
	}

	return &Result{
		Order:          orders.ToDTO(*placed.order),
		AppliedRewards: placed.rewards,
		PointsBalance:  placed.profile.Points,
		PromotedToVIP:  placed.promoted,
	}, nil
}

func (s *service) fail(err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	if code == pkgerrors.CodeConcurrency {
		s.metrics.IncConflict("checkout")
	}
	s.metrics.ObserveCheckout(string(code), 0)
	return err
}

// snapshot copies each line's current price into an order item. Lines whose
// menu item was withdrawn abort the checkout so the customer can fix the cart.
func snapshot(lines []models.CartItem) ([]models.OrderItem, int64, error) {
	if len(lines) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")
	}
	var (
		items       = make([]models.OrderItem, 0, len(lines))
		subtotal    int64
		unavailable []string
	)
	for _, line := range lines {
		if line.MenuItem == nil || !line.MenuItem.IsAvailable {
			unavailable = append(unavailable, line.MenuItemID.String())
			continue
		}
		lineSubtotal := line.MenuItem.Price * int64(line.Quantity)
		items = append(items, models.OrderItem{
			MenuItemID:   line.MenuItemID,
			Name:         line.MenuItem.Name,
			Quantity:     line.Quantity,
			UnitPrice:    line.MenuItem.Price,
			LineSubtotal: lineSubtotal,
		})
		subtotal += lineSubtotal
	}
	if len(unavailable) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "some items in your cart are no longer available").
			WithDetails(map[string]any{"unavailable_items": unavailable})
	}
	return items, subtotal, nil
}
