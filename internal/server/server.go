package server

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pageturn/chat/internal/chat"
	"github.com/pageturn/chat/internal/config"
	"github.com/pageturn/chat/internal/database"
	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/logging"
	"github.com/pageturn/chat/internal/middleware"
	"github.com/pageturn/chat/internal/presence"
	"github.com/pageturn/chat/internal/pubsub"
	"github.com/pageturn/chat/internal/room"
	"github.com/surrealdb/surrealdb.go"
)

// Server holds the dependencies for the chat HTTP server.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Cfg *config.Config

	mgr         *chat.Manager
	chatHandler *chat.Handler
	users       directory.UserDirectory
	bridge      *pubsub.WatermillBridge
}

// Dependencies holds the collaborators the server wires into the chat
// core. Tests inject fakes here; New fills it from configuration.
type Dependencies struct {
	Store      chat.MessageStore
	Users      directory.UserDirectory
	Clubs      directory.ClubDirectory
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
}

// New creates a Server instance from the environment.
func New() *Server {
	// Load environment variables from .env file if it exists. slog is not
	// configured yet, so the standard logger is acceptable here.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	logging.New()
	cfg := config.New()

	bridge := pubsub.NewWatermillBridge()

	var db *surrealdb.DB
	deps := Dependencies{
		Publisher:  bridge,
		Subscriber: bridge,
	}

	switch cfg.StoreBackend {
	case config.StoreSurreal:
		var err error
		db, err = database.NewDB(context.Background(), cfg)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		deps.Store = database.NewMessageStore(db)
		deps.Clubs = database.NewClubDirectory(db)
		deps.Users = directory.NewJWTUserDirectory([]byte(cfg.JWTSecret), database.NewProfileStore(db))
	default:
		deps.Store = chat.NewMemoryStore()
		clubs := seedClubs(os.Getenv("CHAT_CLUBS"))
		deps.Clubs = clubs
		deps.Users = directory.NewJWTUserDirectory([]byte(cfg.JWTSecret), directory.NewStaticProfiles(nil))
		slog.Warn("Running with the in-memory store; messages will not survive a restart")
	}

	s := NewWithDeps(cfg, deps)
	s.DB = db
	s.bridge = bridge
	return s
}

// NewWithDeps wires the chat core onto an echo instance with explicit
// collaborators.
func NewWithDeps(cfg *config.Config, deps Dependencies) *Server {
	tracker := presence.NewTracker()
	rooms := room.NewRegistry(deps.Subscriber)
	notifier := chat.NewNotifier(deps.Publisher)

	mgr := chat.NewManager(chat.Dependencies{
		Store:        deps.Store,
		Users:        deps.Users,
		Clubs:        deps.Clubs,
		Presence:     tracker,
		Rooms:        rooms,
		Notifier:     notifier,
		StoreTimeout: cfg.StoreTimeout,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	return &Server{
		E:           e,
		Cfg:         cfg,
		mgr:         mgr,
		chatHandler: chat.NewHandler(mgr),
		users:       deps.Users,
	}
}

// Manager exposes the session manager, useful for tests.
func (s *Server) Manager() *chat.Manager {
	return s.mgr
}

// RegisterRoutes mounts the chat endpoints behind the auth middleware.
func (s *Server) RegisterRoutes() {
	auth := middleware.Auth(s.users)

	s.E.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	s.E.GET("/ws/chat", s.chatHandler.ServeWS, auth)

	api := s.E.Group("/api", auth)
	api.GET("/clubs/:clubId/messages", s.chatHandler.HistoryGet)
}

// seedClubs parses the CHAT_CLUBS development seed, e.g.
// "bookworms=alice:alice|bob,mystery=carol:carol|dave"
// (clubID=creatorID:member|member,...).
func seedClubs(raw string) *directory.StaticClubs {
	clubs := directory.NewStaticClubs()
	if raw == "" {
		return clubs
	}
	for _, entry := range strings.Split(raw, ",") {
		id, rest, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		creator, members, _ := strings.Cut(rest, ":")
		club := &directory.Club{ID: id, CreatorID: creator}
		if members != "" {
			club.MemberIDs = strings.Split(members, "|")
		}
		clubs.Add(club)
	}
	return clubs
}
