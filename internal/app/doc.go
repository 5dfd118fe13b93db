// Package app provides the application composition layer for the wager
// gateway.
//
// # Architecture Role
//
// The app package composes the domain services, storage, and HTTP surface
// into a running application. It is NOT a business logic layer - business
// logic belongs in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Main application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── account/        # Principals and session state
//	│   ├── post/           # Post targets and creator attribution
//	│   ├── wager/          # Vote requests, stake tiers, game results
//	│   └── withdraw/       # Withdrawal requests and balance snapshots
//	├── signing/            # Canonical payload signing and verification
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (AccountStore, PostStore, GameStore)
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic services
//	│   ├── gateway/        # Signature verification and worker forwarding
//	│   ├── game/           # Per-post game round state machine
//	│   ├── balance/        # Balance reads and the withdrawal flow
//	│   └── sentiment/      # Outbound sentiment resolver
//	├── httpapi/            # HTTP API handlers and routing
//	├── system/             # Service lifecycle management
//	└── metrics/            # Application metrics
//
// # Responsibilities
//
// The app package is responsible for:
//
//   - Composing services from internal/app/services/ with their dependencies
//   - Defining storage interfaces that services depend on
//   - Providing domain models shared across services
//   - Exposing HTTP API endpoints for external access
//   - Managing application-level concerns (metrics, lifecycle)
//
// # Dependency Direction
//
// The dependency flow is:
//
//	cmd/gateway/
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      │           │
//	      │           └──► internal/app/domain/ + signing/
//	      │
//	      └──► internal/app/storage/ (persistence)
package app
