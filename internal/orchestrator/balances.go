/**
 * @description
 * Concurrent multi-network balance aggregation, used for the balance display
 * surface. The policy here is deliberately lenient: one network's RPC outage
 * must not blank out every other network's balance, so a failed query
 * contributes zero for that network only.
 *
 * This is NOT the balance check the orchestrator performs before submission —
 * that check (orchestrator.go step 4) aborts on a failed query instead of
 * substituting zero, because a substituted zero there would turn a transient
 * outage into a false insufficient-balance rejection.
 */

package orchestrator

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/domain"
)

// AggregateBalances queries every address concurrently and returns smallest-unit
// balances keyed by network. Networks whose query fails report zero.
func (o *Orchestrator) AggregateBalances(ctx context.Context, addresses map[domain.Network]string) map[domain.Network]decimal.Decimal {
	return AggregateBalances(ctx, o.gateways, addresses)
}

// AggregateBalances is the standalone form used by callers that hold their own
// gateway set (tests, diagnostics tooling).
func AggregateBalances(
	ctx context.Context,
	gateways map[domain.Network]LedgerGateway,
	addresses map[domain.Network]string,
) map[domain.Network]decimal.Decimal {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		balances = make(map[domain.Network]decimal.Decimal, len(addresses))
	)

	for network, address := range addresses {
		gateway, ok := gateways[network]
		if !ok {
			mu.Lock()
			balances[network] = decimal.Zero
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(network domain.Network, gateway LedgerGateway, address string) {
			defer wg.Done()
			balance, err := gateway.Balance(ctx, address)
			if err != nil {
				log.Printf("level=warn component=orchestrator op=aggregate_balances network=%s err=%v", network, err)
				balance = decimal.Zero
			}
			mu.Lock()
			balances[network] = balance
			mu.Unlock()
		}(network, gateway, address)
	}

	wg.Wait()
	return balances
}
