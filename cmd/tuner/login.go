package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/config"
	"github.com/hazadus/go-tuner/internal/credentials"
	"github.com/hazadus/go-tuner/internal/service/remote"
)

// createLoginCommand создает команду login с привязкой к экземпляру приложения
func (app *Application) createLoginCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the streaming service",
		Long:  `Log in with a device code: open the printed link, confirm the code and wait.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireRemote(); err != nil {
				return err
			}
			store := credentials.NewStore(app.Config.Auth.CredentialsFile)
			return login(ctx, cmd.OutOrStdout(), app.newRemote(store), store)
		},
	}
}

// createLogoutCommand создает команду logout с привязкой к экземпляру приложения
func (app *Application) createLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := credentials.NewStore(app.Config.Auth.CredentialsFile)
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "👋 Токен удален")
			return nil
		},
	}
}

func login(ctx context.Context, out io.Writer, client *remote.Client, store *credentials.Store) error {
	tok, err := client.Login(ctx, func(dc *remote.DeviceCode) {
		fmt.Fprintf(out, "🔑 Откройте ссылку и подтвердите вход:\n")
		fmt.Fprintf(out, "   %s\n", dc.Link())
		fmt.Fprintf(out, "   Код: %s\n\n", dc.UserCode)
		fmt.Fprintln(out, "⏳ Ждем подтверждения...")
	})
	if err != nil {
		return fmt.Errorf("ошибка входа: %w", err)
	}

	fmt.Fprintln(out, "✅ Вход выполнен")
	if tok.UserID != "" {
		fmt.Fprintf(out, "   Пользователь: %s\n", tok.UserID)
	}
	fmt.Fprintf(out, "   Токен сохранен в %s\n", store.Path())
	return nil
}

func (app *Application) requireRemote() error {
	if app.Config.Service.Backend != config.BackendRemote {
		return fmt.Errorf("команда доступна только для бэкенда %q (service.backend)", config.BackendRemote)
	}
	return nil
}
