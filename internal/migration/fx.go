package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/innkeep/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/config"
	invoicedomain "github.com/smallbiznis/innkeep/internal/invoice/domain"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
	"github.com/smallbiznis/innkeep/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql dev setups derive the schema from the
			// models; the versioned SQL path is postgres-only.
			if err := conn.AutoMigrate(
				&bookingdomain.Booking{},
				&bookingdomain.BookingStay{},
				&bookingdomain.BookingService{},
				&bookingdomain.Payment{},
				&catalogdomain.Room{},
				&catalogdomain.Service{},
				&invoicedomain.Invoice{},
				&invoicedomain.InvoiceItem{},
				&invoicedomain.InvoiceDiscount{},
				&promotiondomain.Promotion{},
				&promotiondomain.PromotionUsage{},
				&refunddomain.RefundPolicy{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultRefundPolicies(conn)
	}),
)
