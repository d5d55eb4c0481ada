package main

import (
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/fbgraph/internal/app"
	"git.sr.ht/~jakintosh/fbgraph/internal/config"
	"git.sr.ht/~jakintosh/fbgraph/internal/credentials"
	"git.sr.ht/~jakintosh/fbgraph/internal/session"
	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v\n", err)
	}

	logLevel, _ := config.ParseLogLevel(cfg.LogLevel)
	auth.SetLogLevel(logLevel)

	creds := loadCredentials(cfg)
	defer creds.Close()

	sessions := loadSessions(cfg)

	a, err := app.New(app.Options{
		Credentials:  creds,
		Sessions:     sessions,
		GraphOptions: cfg.GraphOptions(),
		CanvasURL:    cfg.CanvasURL,
		Scope:        cfg.Scope,
	})
	if err != nil {
		log.Fatalf("failed to create app: %v\n", err)
	}

	log.Printf("listening on %s\n", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, a.Router()))
}

func loadCredentials(cfg *config.Config) *credentials.Store {
	if cfg.CredentialsFile == "" {
		return credentials.Static(credentials.Credentials{
			AppID:     cfg.AppID,
			AppSecret: cfg.AppSecret,
		})
	}

	store, err := credentials.NewStore(cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("failed to load credentials: %v\n", err)
	}
	if err := store.Watch(); err != nil {
		log.Fatalf("failed to watch credentials: %v\n", err)
	}
	return store
}

func loadSessions(cfg *config.Config) *session.Codec {
	var key []byte
	var err error
	if cfg.SessionKey != "" {
		key, err = cfg.SessionKeyBytes()
	} else {
		log.Printf("FBGRAPH_SESSION_KEY not set, sessions will not survive a restart\n")
		key, err = session.NewKey()
	}
	if err != nil {
		log.Fatalf("failed to prepare session key: %v\n", err)
	}

	opts := session.DefaultCookieOptions()
	opts.Secure = !cfg.InsecureHTTP
	sessions, err := session.NewCodec(key, opts)
	if err != nil {
		log.Fatalf("failed to create session codec: %v\n", err)
	}
	return sessions
}
