package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gopxl/beep"

	"github.com/hazadus/go-tuner/internal/audio"
	"github.com/hazadus/go-tuner/internal/bridge"
	"github.com/hazadus/go-tuner/internal/config"
	"github.com/hazadus/go-tuner/internal/credentials"
	"github.com/hazadus/go-tuner/internal/decoder"
	"github.com/hazadus/go-tuner/internal/playback"
	"github.com/hazadus/go-tuner/internal/s3"
	"github.com/hazadus/go-tuner/internal/service"
	"github.com/hazadus/go-tuner/internal/service/cache"
	"github.com/hazadus/go-tuner/internal/service/library"
	"github.com/hazadus/go-tuner/internal/service/remote"
	"github.com/hazadus/go-tuner/internal/track"
)

// session - контроллер воспроизведения вместе с открытым аудиовыводом
type session struct {
	ctrl   *playback.Controller
	output *audio.Output
}

// Close отменяет задачи контроллера и только потом останавливает вывод
func (s *session) Close() error {
	s.ctrl.Close()
	return s.output.Close()
}

// openSession собирает клиент, декодер, мост и звуковой вывод
func (app *Application) openSession() (*session, error) {
	client, err := app.newClient()
	if err != nil {
		return nil, err
	}

	rate := beep.SampleRate(app.Config.Audio.SampleRate)
	b := bridge.New()
	output, err := audio.Open(audio.Speaker(), b, rate, app.Config.Audio.Buffer)
	if err != nil {
		return nil, err
	}

	dec := decoder.New(output.SampleRate(), app.Config.Audio.ResampleQuality,
		decoder.WithPrefetch(output.SampleRate().N(app.Config.Audio.Prefetch)))
	ctrl := playback.New(client, dec, b, playback.WithLogger(app.Log))

	s := &session{ctrl: ctrl, output: output}
	app.onClose(s)
	return s, nil
}

// newClient создает клиент каталога по настройкам service.backend
func (app *Application) newClient() (service.Client, error) {
	switch app.Config.Service.Backend {
	case config.BackendRemote:
		return app.newRemoteClient()
	case config.BackendLibrary:
		return app.newLibraryClient()
	default:
		return nil, fmt.Errorf("неизвестный бэкенд %q", app.Config.Service.Backend)
	}
}

func (app *Application) newRemoteClient() (service.Client, error) {
	cfg := app.Config.Service
	store := credentials.NewStore(app.Config.Auth.CredentialsFile)

	tok, err := store.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNotLoggedIn) {
			return nil, fmt.Errorf("%w: выполните 'tuner login'", err)
		}
		return nil, err
	}

	client := remote.New(cfg.URL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		remote.WithStore(store),
		remote.WithToken(tok),
		remote.WithClientID(cfg.ClientID),
		remote.WithQuality(cfg.Quality),
		remote.WithPageSize(cfg.PageSize),
		remote.WithLogger(app.Log),
	)

	if !app.Config.Cache.Enabled {
		return client, nil
	}
	cached, err := cache.Open(app.Config.Cache.Path, client,
		cache.WithTTL(app.Config.Cache.TTL),
		cache.WithNamespace(cfg.URL+"|"+cfg.Quality),
		cache.WithLogger(app.Log),
	)
	if err != nil {
		// Кэш не обязателен: работаем напрямую
		app.Log.Warn().Err(err).Str("path", app.Config.Cache.Path).Msg("Кэш недоступен")
		return client, nil
	}
	app.onClose(cached)
	return cached, nil
}

func (app *Application) newLibraryClient() (service.Client, error) {
	opts := []library.Option{library.WithLogger(app.Log)}
	if app.Config.HasStorage() {
		storage, err := s3.NewStorage(app.s3Config())
		if err != nil {
			return nil, fmt.Errorf("ошибка создания S3 клиента: %w", err)
		}
		opts = append(opts, library.WithPresigner(storage, app.Config.Library.PresignTTL))
	}
	return library.New(track.NewManager(app.Data), opts...), nil
}

// newRemote создает клиент сервиса без токена: для входа и выхода
func (app *Application) newRemote(store *credentials.Store) *remote.Client {
	cfg := app.Config.Service
	return remote.New(cfg.URL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		remote.WithStore(store),
		remote.WithClientID(cfg.ClientID),
		remote.WithLogger(app.Log),
	)
}

func (app *Application) s3Config() *s3.Config {
	lib := app.Config.Library
	return &s3.Config{
		Region:     lib.AwsRegion,
		AccessKey:  lib.AwsAccessKey,
		SecretKey:  lib.AwsSecretKey,
		Endpoint:   lib.AwsEndpoint,
		BucketName: lib.AwsBucketName,
	}
}
