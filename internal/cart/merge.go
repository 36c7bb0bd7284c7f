package cart

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MergeGuestCart folds the visitor's anonymous cart into the signed-in user's
// cart, adding quantities line by line, then deletes the guest cart. Lines whose
// menu item is no longer available are dropped. Running it again is a no-op
// because the guest cart is gone.
func (s *service) MergeGuestCart(ctx context.Context, shopper session.Shopper) (bool, error) {
	key := shopper.SessionKey()
	if !shopper.IsAuthenticated() || key == "" {
		return false, nil
	}
	if _, err := s.repo.FindBySession(ctx, key); err != nil {
		if repo.IsNotFound(err) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find guest cart")
	}

	var (
		merged  bool
		target  uuid.UUID
		moved   int
		dropped int
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		merged, moved, dropped = false, 0, 0
		r := s.repo.WithTx(tx)

		guest, err := r.FindBySession(ctx, key)
		if repo.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find guest cart")
		}
		if _, err := r.LockCart(ctx, guest.ID); err != nil {
			if repo.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock guest cart")
		}

		userCart, err := r.EnsureForUser(ctx, *shopper.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user cart")
		}
		if _, err := lockCart(ctx, r, userCart.ID); err != nil {
			return err
		}

		lines, err := r.ListLines(ctx, guest.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guest lines")
		}
		for _, line := range lines {
			if line.MenuItem == nil || !line.MenuItem.IsAvailable {
				dropped++
				continue
			}
			if err := addToLine(ctx, r, userCart.ID, line.MenuItemID, line.Quantity); err != nil {
				return err
			}
			moved++
		}

		if err := r.DeleteLines(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest lines")
		}
		if err := r.DeleteCart(ctx, guest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest cart")
		}
		merged = true
		target = userCart.ID
		return nil
	})
	if err != nil {
		return false, s.surface("merge", err)
	}
	if !merged {
		return false, nil
	}

	s.remember(ctx, shopper, &target)
	s.metrics.IncCartMerge()
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":       target.String(),
			"lines_moved":   moved,
			"lines_dropped": dropped,
		})
		s.logg.Info(logCtx, "cart.merged")
	}
	return true, nil
}

func addToLine(ctx context.Context, r CartRepository, cartID, menuItemID uuid.UUID, quantity int) error {
	existing, err := r.LockLine(ctx, cartID, menuItemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart line")
	}
	if existing != nil {
		err = r.UpdateLineQuantity(ctx, existing.ID, existing.Quantity+quantity)
	} else {
		err = r.CreateLine(ctx, &models.CartItem{CartID: cartID, MenuItemID: menuItemID, Quantity: quantity})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
	}
	return nil
}
