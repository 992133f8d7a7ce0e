package services

import (
	"context"
	"log"
	"time"

	"booking-marketplace/internal/models"
)

// CartService manages shopper carts and the reservation lifecycle around
// them, including the background sweep that reclaims abandoned
// reservations.
type CartService struct {
	cartRepo         CartRepository
	idleTTL          time.Duration
	stuckCheckoutTTL time.Duration
	sweepInterval    time.Duration
}

// NewCartService creates a new cart service
func NewCartService(cartRepo CartRepository, idleTTL, stuckCheckoutTTL, sweepInterval time.Duration) *CartService {
	return &CartService{
		cartRepo:         cartRepo,
		idleTTL:          idleTTL,
		stuckCheckoutTTL: stuckCheckoutTTL,
		sweepInterval:    sweepInterval,
	}
}

// GetCart returns the owner's cart. An owner with no cart yet gets an empty
// one rather than an error.
func (s *CartService) GetCart(ownerID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByOwner(ownerID)
	if err != nil {
		if models.IsNotFound(err) {
			return &models.Cart{OwnerID: ownerID}, nil
		}
		return nil, err
	}
	return cart, nil
}

// AddItem reserves inventory and adds it to the owner's cart
func (s *CartService) AddItem(ownerID string, req *models.AddItemRequest) (*models.Cart, error) {
	if err := req.Validate(); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	return s.cartRepo.AddItem(ownerID, req.ProductItemID, req.Quantity)
}

// RemoveItem releases a line's reservation and removes it from the cart
func (s *CartService) RemoveItem(ownerID, productItemID string) error {
	return s.cartRepo.RemoveItem(ownerID, productItemID)
}

// ClearCart releases every reservation and deletes the cart
func (s *CartService) ClearCart(ownerID string) error {
	return s.cartRepo.Clear(ownerID)
}

// SetCheckoutStatus toggles the sweep exemption flag on the owner's cart
func (s *CartService) SetCheckoutStatus(ownerID string, inProgress bool) error {
	return s.cartRepo.SetCheckoutStatus(ownerID, inProgress)
}

// StartSweeper runs the cart sweep on an interval until the context is
// cancelled.
func (s *CartService) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	log.Printf("cart sweeper started (interval: %s, idle TTL: %s, stuck checkout TTL: %s)",
		s.sweepInterval, s.idleTTL, s.stuckCheckoutTTL)

	for {
		select {
		case <-ctx.Done():
			log.Printf("cart sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce reclaims idle carts and force-clears stuck checkout flags. Idle
// carts are deleted with their reservations returned; a stuck checkout flag
// is cleared without returning inventory, which hands the cart to the idle
// sweep on its next pass.
func (s *CartService) SweepOnce() {
	now := time.Now().UTC()

	idle, err := s.cartRepo.FindIdle(now.Add(-s.idleTTL))
	if err != nil {
		log.Printf("cart sweep: failed to find idle carts: %v", err)
	} else {
		for _, cart := range idle {
			if err := s.cartRepo.Reclaim(cart.ID); err != nil {
				log.Printf("cart sweep: failed to reclaim cart %s: %v", cart.ID, err)
				continue
			}
			log.Printf("cart sweep: reclaimed idle cart %s (owner %s)", cart.ID, cart.OwnerID)
		}
	}

	stuck, err := s.cartRepo.FindStuckCheckout(now.Add(-s.stuckCheckoutTTL))
	if err != nil {
		log.Printf("cart sweep: failed to find stuck checkouts: %v", err)
		return
	}
	for _, cart := range stuck {
		if err := s.cartRepo.ForceClearCheckout(cart.ID); err != nil {
			log.Printf("cart sweep: failed to clear stuck checkout on cart %s: %v", cart.ID, err)
			continue
		}
		log.Printf("cart sweep: cleared stuck checkout flag on cart %s (owner %s)", cart.ID, cart.OwnerID)
	}
}
