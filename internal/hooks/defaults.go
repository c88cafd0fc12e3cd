package hooks

import (
	"fmt"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/fees"
	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/metrics"
)

// DefaultEngineParams configure the stock hook wiring.
type DefaultEngineParams struct {
	Logger  *logger.Logger
	Metrics *metrics.HookMetrics
	Fees    *fees.Calculator
	Orders  config.OrdersConfig
}

// timestampedTables lists every table whose updates must refresh updated_at.
var timestampedTables = []string{
	authz.TableUsers,
	authz.TableProfiles,
	authz.TableSocialMediaAccounts,
	authz.TableCategories,
	authz.TableListings,
	authz.TableCarts,
	authz.TableSetupProgress,
	authz.TableOrders,
	authz.TableOrderShipments,
	authz.TableDisputes,
	authz.TableReturns,
	authz.TableRefundRequests,
	authz.TableConversations,
	authz.TableBrandVerificationRequests,
}

// NewDefaultEngine wires every write hook the schema relies on. This is the
// one place hook registrations live; adding a hook elsewhere hides it from
// Bindings and from the startup log.
func NewDefaultEngine(params DefaultEngineParams) (*Engine, error) {
	if params.Fees == nil {
		return nil, fmt.Errorf("fee calculator required")
	}

	engine := NewEngine(params.Logger, params.Metrics)

	engine.Register(authz.TableUsers, OpInsert, PhaseAfter, NewUserBootstrapHook())

	timestamps := NewTimestampsHook()
	for _, table := range timestampedTables {
		engine.Register(table, OpUpdate, PhaseBefore, timestamps)
	}

	setup := NewSetupCompletionHook()
	engine.Register(authz.TableSetupProgress, OpInsert, PhaseAfter, setup)
	engine.Register(authz.TableSetupProgress, OpUpdate, PhaseAfter, setup)

	totals, err := NewOrderTotalsHook(params.Fees)
	if err != nil {
		return nil, err
	}
	engine.Register(authz.TableOrders, OpInsert, PhaseBefore, totals)
	engine.Register(authz.TableOrders, OpInsert, PhaseBefore, NewOrderNumberHook(params.Orders))

	engine.Register(authz.TableOrders, OpUpdate, PhaseAfter, NewStatsOnCompletionHook())

	payout, err := NewPayoutOnCompletionHook(params.Fees)
	if err != nil {
		return nil, err
	}
	engine.Register(authz.TableOrders, OpUpdate, PhaseAfter, payout)

	engine.Register(authz.TableListings, OpInsert, PhaseAfter, NewListingCountHook())

	return engine, nil
}
