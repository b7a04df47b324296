// Package pkg provides the core libraries of the pagecomposer page editor.
//
// # Overview
//
// Pagecomposer edits the layout of rendered pages by drag and drop. A page
// is markup whose containers (vertical boxes, lists, tables, spans) hold
// ordered items. The editor discovers the containers, overlays them, lets
// the user move items within and between containers, and reports every
// change to a backend that stores the page model. The pkg directory is
// organized into four main areas:
//
//  1. Editing core (document, geometry, drag and drop, widgets, engine)
//  2. Host side (message channel, shell, properties panel, REST client)
//  3. Backend (page-model store, sessions, development server)
//  4. Support (errors, caching, configuration, rendering, observability)
//
// # Architecture
//
// The typical data flow of an edit:
//
//	Page markup (backend)
//	         ↓
//	    [dom] package (parse, query, mutate)
//	         ↓
//	    [composer] package (discover containers, create widgets)
//	         ↓
//	    [widget] + [dnd] packages (drag, drop, reorder)
//	         ↓
//	    [channel] messages (rearrange, remove, onclick)
//	         ↓
//	    [shell] package (REST calls, reload, properties)
//	         ↓
//	    [store] package (page model)
//
// # Quick Start
//
// Run an engine over a page and a host shell against a backend:
//
//	doc, _ := dom.ParseString(markup)
//	host, engineEnd := channel.Pipe()
//	engine := composer.New(doc, engineEnd, composer.Options{})
//	sh := shell.New(api, host, shell.Options{Panel: properties.NewPanel(api)})
//
//	go engine.Serve(ctx, engineEnd)
//	go sh.Serve(ctx, host)
//	_ = engine.Post(func() { _ = engine.Init() })
//
// # Main Packages
//
// ## Editing Core
//
// [dom] - Headless document over x/net/html with goquery selections,
// cascadia selectors, events and box layout attributes.
//
// [geometry] - Boxes and drop indicator placement.
//
// [dnd] - Drag-and-drop surfaces, gestures and placements.
//
// [widget] - Container and item widgets with their overlays.
//
// [composer] - The engine: container discovery, widget registry, the
// single-threaded event loop, inbound message handling and reloads.
//
// ## Host Side
//
// [channel] - Tagged JSON messages over in-memory pipes and WebSockets.
//
// [shell] - Reacts to engine messages and keeps the backend in sync.
//
// [properties] - The properties form of the selected item.
//
// [rest] - Typed client of the backend's REST endpoints.
//
// ## Backend
//
// [store] - Page-model repository over memory, Redis and MongoDB backends,
// page rendering and TOML fixtures.
//
// [session] - Editing sessions with memory, file and Redis stores.
//
// [server] - chi development backend serving the REST endpoints and
// WebSocket editing sessions.
//
// ## Support
//
// [errors] - Structured error codes.
//
// [orderedmap] - Insertion-ordered maps used by widget registries.
//
// [cache] - Response caches (memory, file, Redis).
//
// [config] - TOML configuration.
//
// [render] - Page model diagrams with Graphviz.
//
// [observability] - Engine, cache and HTTP hooks.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/composer/... # Specific package
//
// [dom]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/dom
// [geometry]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/geometry
// [dnd]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/dnd
// [widget]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/widget
// [composer]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/composer
// [channel]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/channel
// [shell]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/shell
// [properties]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/properties
// [rest]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/rest
// [store]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/store
// [session]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/session
// [server]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/errors
// [orderedmap]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/orderedmap
// [cache]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/config
// [render]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/render
// [observability]: https://pkg.go.dev/github.com/matzehuels/pagecomposer/pkg/observability
package pkg
