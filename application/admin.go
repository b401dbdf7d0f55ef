package application

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vaultbank/domain"
	"vaultbank/telemetry"
)

// Authority is the external access-control collaborator. The core only asks
// capability questions and delegates grant/revoke; it never decides who is
// an admin.
type Authority interface {
	HasAdminCapability(identity string) bool
	HasSuperAdminCapability(identity string) bool
	GrantAdmin(identity string) error
	RevokeAdmin(identity string) error
}

// FeedRegistry is the slice of the oracle gateway the admin surface needs.
type FeedRegistry interface {
	Register(asset domain.Asset, feed domain.PriceFeed)
}

// Admin mutates global parameters and oracle registrations, each call gated
// by the injected Authority.
type Admin struct {
	ledger  *domain.Ledger
	feeds   FeedRegistry
	auth    Authority
	events  EventSink
	metrics *telemetry.Metrics
	log     zerolog.Logger
}

func NewAdmin(ledger *domain.Ledger, feeds FeedRegistry, auth Authority, events EventSink, metrics *telemetry.Metrics, log zerolog.Logger) *Admin {
	if events == nil {
		events = NopSink{}
	}
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	return &Admin{ledger: ledger, feeds: feeds, auth: auth, events: events, metrics: metrics, log: log}
}

func (a *Admin) requireAdmin(caller string) error {
	if !a.auth.HasAdminCapability(caller) {
		return fmt.Errorf("%w: %q is not an admin", domain.ErrNotAuthorized, caller)
	}
	return nil
}

func (a *Admin) requireSuperAdmin(caller string) error {
	if !a.auth.HasSuperAdminCapability(caller) {
		return fmt.Errorf("%w: %q is not a super admin", domain.ErrNotAuthorized, caller)
	}
	return nil
}

// AddFeed registers or overwrites the price feed for an asset. The feed is
// not probed; the gateway validates it lazily on first read.
func (a *Admin) AddFeed(caller string, asset domain.Asset, feed domain.PriceFeed) error {
	if err := a.requireAdmin(caller); err != nil {
		return err
	}
	a.feeds.Register(asset, feed)

	e := newEvent(EventFeedUpdated)
	e.User, e.Asset = caller, asset
	a.events.Publish(e)
	a.log.Info().Str("caller", caller).Str("asset", string(asset)).Msg("price feed registered")
	return nil
}

// SetBankCapacity replaces the global ceiling. The ledger rejects any value
// at or below current holdings.
func (a *Admin) SetBankCapacity(caller string, newCapacity decimal.Decimal) error {
	if err := a.requireAdmin(caller); err != nil {
		return err
	}
	if err := a.ledger.SetBankCapacity(newCapacity); err != nil {
		return err
	}
	a.metrics.BankCapacityUSD.Set(newCapacity.InexactFloat64())

	e := newEvent(EventCapacityUpdated)
	e.User, e.USDValue = caller, newCapacity
	a.events.Publish(e)
	a.log.Info().Str("caller", caller).Str("capacity", newCapacity.String()).Msg("bank capacity updated")
	return nil
}

// SetWithdrawalThreshold replaces the per-operation ceiling.
func (a *Admin) SetWithdrawalThreshold(caller string, newThreshold decimal.Decimal) error {
	if err := a.requireAdmin(caller); err != nil {
		return err
	}
	if err := a.ledger.SetWithdrawalThreshold(newThreshold); err != nil {
		return err
	}

	e := newEvent(EventThresholdUpdated)
	e.User, e.USDValue = caller, newThreshold
	a.events.Publish(e)
	a.log.Info().Str("caller", caller).Str("threshold", newThreshold.String()).Msg("withdrawal threshold updated")
	return nil
}

// GrantAdmin delegates granting the admin capability to the Authority.
func (a *Admin) GrantAdmin(caller, target string) error {
	if err := a.requireSuperAdmin(caller); err != nil {
		return err
	}
	if err := a.auth.GrantAdmin(target); err != nil {
		return err
	}

	e := newEvent(EventAdminGranted)
	e.User, e.Target = caller, target
	a.events.Publish(e)
	a.log.Info().Str("caller", caller).Str("target", target).Msg("admin granted")
	return nil
}

// RevokeAdmin delegates revoking the admin capability to the Authority.
func (a *Admin) RevokeAdmin(caller, target string) error {
	if err := a.requireSuperAdmin(caller); err != nil {
		return err
	}
	if err := a.auth.RevokeAdmin(target); err != nil {
		return err
	}

	e := newEvent(EventAdminRevoked)
	e.User, e.Target = caller, target
	a.events.Publish(e)
	a.log.Info().Str("caller", caller).Str("target", target).Msg("admin revoked")
	return nil
}

// StaticAuthority is an in-process Authority seeded from configuration.
// Super admins hold the admin capability implicitly.
type StaticAuthority struct {
	mu     sync.RWMutex
	admins map[string]bool
	supers map[string]bool
}

func NewStaticAuthority(admins, superAdmins []string) *StaticAuthority {
	a := &StaticAuthority{admins: make(map[string]bool), supers: make(map[string]bool)}
	for _, id := range admins {
		a.admins[id] = true
	}
	for _, id := range superAdmins {
		a.supers[id] = true
	}
	return a
}

func (a *StaticAuthority) HasAdminCapability(identity string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.admins[identity] || a.supers[identity]
}

func (a *StaticAuthority) HasSuperAdminCapability(identity string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.supers[identity]
}

func (a *StaticAuthority) GrantAdmin(identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.admins[identity] = true
	return nil
}

func (a *StaticAuthority) RevokeAdmin(identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.admins, identity)
	return nil
}
