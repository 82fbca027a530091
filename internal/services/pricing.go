package services

import (
	"time"

	"github.com/example/glovia/internal/models"
)

// DeliveryConfig holds the tiered shipping parameters.
type DeliveryConfig struct {
	FreeThreshold float64
	ZoneDistricts []string
	ZoneCharge    float64
	OutsideCharge float64
}

// DeliveryCharge returns the shipping fee for a destination district.
// Orders at or above the free threshold ship for nothing; otherwise a flat
// fee applies depending on whether the district is in the low-cost zone.
func DeliveryCharge(district string, subtotal float64, cfg DeliveryConfig) float64 {
	if subtotal >= cfg.FreeThreshold {
		return 0
	}
	for _, d := range cfg.ZoneDistricts {
		if d == district {
			return cfg.ZoneCharge
		}
	}
	return cfg.OutsideCharge
}

// CouponDiscount computes the discount a coupon yields on subtotal at the
// given instant. Inactive, out-of-window, below-minimum and usage-exhausted
// coupons yield zero. Flat discounts are not capped at the subtotal, so an
// oversized coupon can drive an order total negative.
func CouponDiscount(coupon *models.Coupon, subtotal float64, now time.Time) float64 {
	if coupon == nil || !coupon.IsActive {
		return 0
	}
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return 0
	}
	if coupon.MinOrderAmount > 0 && subtotal < coupon.MinOrderAmount {
		return 0
	}
	if coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit {
		return 0
	}

	if coupon.DiscountType == models.DiscountTypePercentage {
		discount := subtotal * coupon.DiscountValue / 100
		if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
			discount = coupon.MaxDiscount
		}
		return discount
	}

	return coupon.DiscountValue
}

// OrderTotal is the invariant every order satisfies.
func OrderTotal(subtotal, deliveryCharge, discount float64) float64 {
	return subtotal + deliveryCharge - discount
}
