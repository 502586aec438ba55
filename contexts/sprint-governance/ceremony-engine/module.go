package ceremonyengine

import (
	"log/slog"
	"strings"

	httpadapter "agora/contexts/sprint-governance/ceremony-engine/adapters/http"
	"agora/contexts/sprint-governance/ceremony-engine/adapters/memory"
	"agora/contexts/sprint-governance/ceremony-engine/application/commands"
	"agora/contexts/sprint-governance/ceremony-engine/application/queries"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Members    ports.MembershipRepository
	Ceremonies ports.CeremonyRepository
	Tally      ports.TallyRepository
	Conclusion ports.ConclusionRepository
	Outbox     ports.OutboxWriter
	Roles      ports.RoleDirectory
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Policy     commands.Policy
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	membershipUseCase := commands.MembershipUseCase{
		Members: deps.Members,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	ceremonyUseCase := commands.CeremonyUseCase{
		Ceremonies: deps.Ceremonies,
		Roles:      deps.Roles,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Policy:     deps.Policy,
		Logger:     deps.Logger,
	}
	tallyUseCase := commands.TallyUseCase{
		Ceremonies: deps.Ceremonies,
		Members:    deps.Members,
		Tally:      deps.Tally,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Policy:     deps.Policy,
		Logger:     deps.Logger,
	}
	concludeUseCase := commands.ConcludeUseCase{
		Ceremonies: deps.Ceremonies,
		Members:    deps.Members,
		Tally:      deps.Tally,
		Conclusion: deps.Conclusion,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Policy:     deps.Policy,
		Logger:     deps.Logger,
	}
	membershipReads := queries.MembershipUseCase{
		Members:       deps.Members,
		Clock:         deps.Clock,
		VestingPeriod: deps.Policy.VestingPeriod,
	}
	ceremonyReads := queries.CeremonyUseCase{
		Ceremonies: deps.Ceremonies,
		Members:    deps.Members,
		Tally:      deps.Tally,
	}
	return Module{
		Handler: httpadapter.Handler{
			Membership:      membershipUseCase,
			Ceremonies:      ceremonyUseCase,
			Tally:           tallyUseCase,
			Conclusion:      concludeUseCase,
			MembershipReads: membershipReads,
			CeremonyReads:   ceremonyReads,
			Logger:          deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the in-memory store with the
// default policy. Used by tests and local runs without Postgres.
func NewInMemoryModule(seed []entities.Credential, admins []string, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Members:    store,
		Ceremonies: store,
		Tally:      store,
		Conclusion: store,
		Outbox:     store,
		Roles:      NewStaticRoleDirectory(admins),
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}

// StaticRoleDirectory answers the administrator predicate from a fixed
// identity set, typically sourced from configuration at boot.
type StaticRoleDirectory struct {
	admins map[string]struct{}
}

func NewStaticRoleDirectory(identities []string) StaticRoleDirectory {
	admins := make(map[string]struct{}, len(identities))
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}
		admins[identity] = struct{}{}
	}
	return StaticRoleDirectory{admins: admins}
}

func (d StaticRoleDirectory) IsAdministrator(identity string) bool {
	_, ok := d.admins[strings.TrimSpace(identity)]
	return ok
}

var _ ports.RoleDirectory = StaticRoleDirectory{}
