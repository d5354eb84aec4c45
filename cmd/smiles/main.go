package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smiles/internal/api"
	"smiles/internal/booking"
	"smiles/internal/config"
	"smiles/internal/events"
	"smiles/internal/export"
	"smiles/internal/keycloak"
	"smiles/internal/metrics"
	"smiles/internal/schedule"
	"smiles/internal/session"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	var (
		modeFlag     = flag.String("mode", "week", "view mode: day or week")
		dateFlag     = flag.String("date", "", "reference date (YYYY-MM-DD), defaults to today")
		facilityFlag = flag.String("facility", "", "facility ID (overrides config)")
		exportFlag   = flag.String("export", "", "write the visible schedule to an XLSX file")
		watchFlag    = flag.Bool("watch", false, "keep running and refresh the grid periodically")
		cancelFlag   = flag.String("cancel", "", "cancel the appointment with this ID")

		bookFlag     = flag.Bool("book", false, "create an appointment instead of only viewing")
		patientFlag  = flag.String("patient", "", "patient ID for -book")
		dentistFlag  = flag.String("dentist", "", "dentist ID for -book")
		roomFlag     = flag.String("room", "", "room ID for -book")
		timeFlag     = flag.String("time", "", "start time HH:MM for -book")
		durationFlag = flag.Int("duration", 60, "duration in minutes for -book")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("SMILES_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	facilityID := cfg.Calendar.FacilityID
	if *facilityFlag != "" {
		facilityID = *facilityFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := keycloak.New(
		cfg.Keycloak.URL, cfg.Keycloak.Realm,
		cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret,
		cfg.Keycloak.RefreshToken, &logger,
	)

	bus := events.NewBus()
	manager := session.NewManager(provider, &logger)
	manager.SetEventBus(bus)
	manager.SetMinValidity(cfg.TokenMinValidity())
	defer manager.Close()

	client := api.NewClient(cfg.API.BaseURL, manager, &logger)
	client.SetTimeout(cfg.APITimeout())
	client.UseRateLimit(cfg.API.RateLimit, cfg.API.RateBurst)
	client.OnUnauthorized(manager.Login)
	manager.SetUserSource(client)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		port := cfg.Monitoring.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go startMetricsServer(ctx, port, &logger)
	}
	if cfg.Monitoring.HealthCheckPort > 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, rdb, &logger)
	}

	snap := manager.Initialize(ctx)
	if !snap.IsAuthenticated {
		logger.Error().Msg("no active session, interactive login required")
		manager.Login()
		os.Exit(1)
	}
	logger.Info().
		Str("user", snap.User.Username).
		Strs("roles", snap.User.Roles).
		Msg("signed in")

	if health, err := client.CheckAuthHealth(ctx); err != nil {
		logger.Warn().Err(err).Msg("auth health probe failed")
	} else if !health.Authenticated {
		logger.Warn().Str("user", health.Username).Msg("backend does not see the session as authenticated")
	}

	if facilityID == "" {
		facilities, err := client.ListFacilities(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to list facilities")
		}
		for _, f := range facilities {
			logger.Info().Str("facility_id", f.ID).Str("name", f.Name).Msg("available facility")
		}
		logger.Fatal().Msg("set calendar.facility_id in config or pass -facility")
	}

	if *cancelFlag != "" {
		cancelled, err := client.CancelAppointment(ctx, *cancelFlag)
		if err != nil {
			logger.Fatal().Err(err).Str("appointment_id", *cancelFlag).Msg("cancellation failed")
		}
		logger.Info().
			Str("appointment_id", cancelled.ID).
			Str("status", string(cancelled.Status)).
			Msg("appointment cancelled")
	}

	loc := cfg.Location()
	view := schedule.NewView(facilityID, client, loc, &logger)
	hourStart, hourEnd := cfg.BusinessHours()
	view.SetBusinessHours(schedule.BusinessHours{Start: hourStart, End: hourEnd})
	if *modeFlag == "day" {
		view.SetMode(schedule.ModeDay)
	}
	if *dateFlag != "" {
		reference, err := time.ParseInLocation("2006-01-02", *dateFlag, loc)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -date")
		}
		view.SetReference(reference)
	}
	view.WatchCreated(ctx, bus)

	if *bookFlag {
		book(ctx, facilityID, loc, client, bus, &logger, booking.Draft{
			PatientID:       *patientFlag,
			DentistID:       *dentistFlag,
			RoomID:          *roomFlag,
			Date:            *dateFlag,
			StartTime:       *timeFlag,
			DurationMinutes: *durationFlag,
		})
	}

	if err := view.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("appointment fetch failed")
	}
	fmt.Print(schedule.RenderText(view.Range(), view.Bucketed(), view.BusinessHours(), time.Now(), loc))

	if *exportFlag != "" {
		if err := exportSchedule(*exportFlag, view, loc); err != nil {
			logger.Error().Err(err).Msg("export failed")
		} else {
			logger.Info().Str("path", *exportFlag).Msg("schedule exported")
		}
	}

	if !*watchFlag {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := view.Load(ctx); err != nil {
				logger.Error().Err(err).Msg("refresh failed, previous grid kept")
			}
			fmt.Print(schedule.RenderText(view.Range(), view.Bucketed(), view.BusinessHours(), time.Now(), loc))
		}
	}
}

// book drives the create-appointment dialog once: it populates the
// selectable options from the facility directories, checks the draft
// against them and reports the classified outcome the way the form
// would display it.
func book(ctx context.Context, facilityID string, loc *time.Location, client *api.Client, bus *events.Bus, logger *zerolog.Logger, draft booking.Draft) {
	options, err := booking.LoadOptions(ctx, client, facilityID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load facility directories")
		return
	}
	logger.Info().
		Int("dentists", len(options.Dentists)).
		Int("patients", len(options.Patients)).
		Int("rooms", len(options.Rooms)).
		Msg("directories loaded")

	if err := options.CheckDraft(draft); err != nil {
		logger.Error().Err(err).Msg("draft references an option the form does not offer")
		return
	}

	builder := booking.NewBuilder(facilityID, loc, client, logger)
	dialog := booking.NewDialog(builder, bus)
	dialog.Open()
	dialog.Update(func(d *booking.Draft) { *d = draft })

	created, err := dialog.Submit(ctx)
	if err != nil {
		var submitErr *booking.SubmitError
		if errors.As(err, &submitErr) {
			logger.Error().Str("outcome", string(submitErr.Outcome)).Msg(submitErr.Error())
		} else {
			logger.Error().Err(err).Msg("booking rejected before submission")
		}
		dialog.Close()
		return
	}
	logger.Info().Str("appointment_id", created.ID).Msg("appointment booked")
}

func exportSchedule(path string, view *schedule.View, loc *time.Location) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteSchedule(f, view.Range(), view.Bucketed(), view.BusinessHours(), loc)
}

func startHealthServer(ctx context.Context, port int, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
