// Package main — консольный клиент SkinCoach: вход, анализ снимков,
// история, статистика и покупка подписки через sandbox-магазин.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/client/api"
	"github.com/magabrotheeeer/skincoach/internal/client/auth"
	"github.com/magabrotheeeer/skincoach/internal/client/entitlement"
	"github.com/magabrotheeeer/skincoach/internal/client/purchase"
	"github.com/magabrotheeeer/skincoach/internal/client/session"
	"github.com/magabrotheeeer/skincoach/internal/config"
	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Каталог товаров sandbox-магазина.
var catalog = []models.Product{
	{ProductID: "skincoach.premium.monthly", Title: "SkinCoach Premium", Description: "Месяц безлимитных анализов", Price: "4.99 USD"},
}

const usage = `usage: skincoach-cli <command> [args]

commands:
  signup <email> <password>   зарегистрировать учетную запись
  login <email> <password>    войти и сохранить токен
  logout                      выйти и удалить токен
  me                          профиль текущего пользователя
  analyze <image>             отправить снимок на анализ
  history                     история анализов
  stats                       статистика по состояниям кожи
  trend [month|week]          динамика средних скоров
  status                      состояние подписки
  products                    каталог товаров подписки
  buy <product-id>            купить подписку через sandbox-магазин
  restore                     восстановить незавершенные покупки
  delete-account              удалить учетную запись`

type cli struct {
	gateway *api.Gateway
	ctrl    *auth.Controller
	log     *slog.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := session.NewFileStore(cfg.TokenPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open token store:", err)
		os.Exit(1)
	}
	gateway := api.NewGateway(cfg.BackendURL, cfg.Timeout)
	app := &cli{
		gateway: gateway,
		ctrl:    auth.New(gateway, store, logger),
		log:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		if len(args) != 2 {
			return fmt.Errorf("usage: signup <email> <password>")
		}
		if err := c.gateway.Signup(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("account created, now run: login", args[0], "<password>")
		return nil

	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		profile, err := c.ctrl.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println("signed in as", profile.Email)
		return nil

	case "logout":
		c.ctrl.SignOut()
		fmt.Println("signed out")
		return nil

	case "me":
		profile, err := c.requireSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("id: %s\nemail: %s\npremium: %v\nadmin: %v\n",
			profile.ID, profile.Email, profile.IsPremium, profile.IsAdmin)
		return nil

	case "analyze":
		if len(args) != 1 {
			return fmt.Errorf("usage: analyze <image>")
		}
		return c.analyze(ctx, args[0])

	case "history":
		if _, err := c.requireSession(ctx); err != nil {
			return err
		}
		sessions, err := c.gateway.History(ctx, 0, 100)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("#%d  %s  %s\n", s.ID, s.Timestamp.Format(time.DateTime), topLabel(s.Scores))
		}
		return nil

	case "stats":
		if _, err := c.requireSession(ctx); err != nil {
			return err
		}
		stats, err := c.gateway.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Println("total sessions:", stats.TotalSessions)
		for _, stat := range stats.ByLabel {
			fmt.Printf("  %-12s %d (%.1f%%)\n", stat.Label, stat.Count, stat.Percent)
		}
		return nil

	case "trend":
		if _, err := c.requireSession(ctx); err != nil {
			return err
		}
		period := "month"
		if len(args) == 1 {
			period = args[0]
		}
		trend, err := c.gateway.Trend(ctx, period)
		if err != nil {
			return err
		}
		for _, point := range trend.Trend {
			bucket := point.Month
			if bucket == "" {
				bucket = point.Week
			}
			fmt.Println(bucket, point.Averages)
		}
		return nil

	case "status":
		if _, err := c.requireSession(ctx); err != nil {
			return err
		}
		status, err := c.gateway.SubscriptionStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println("premium:", status.IsPremium)
		if status.Expiry != nil {
			fmt.Println("expires:", status.Expiry.Format(time.DateTime))
		}
		return nil

	case "products":
		for _, product := range catalog {
			fmt.Printf("%s  %s  %s\n", product.ProductID, product.Price, product.Title)
		}
		return nil

	case "buy":
		if len(args) != 1 {
			return fmt.Errorf("usage: buy <product-id>")
		}
		return c.buy(ctx, args[0], false)

	case "restore":
		return c.buy(ctx, "", true)

	case "delete-account":
		if _, err := c.requireSession(ctx); err != nil {
			return err
		}
		if err := c.ctrl.DeleteAccount(ctx); err != nil {
			return err
		}
		fmt.Println("account deleted")
		return nil

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// requireSession восстанавливает сессию из сохраненного токена.
func (c *cli) requireSession(ctx context.Context) (*api.Profile, error) {
	profile, err := c.ctrl.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("not signed in, run: login <email> <password>")
	}
	return profile, nil
}

func (c *cli) analyze(ctx context.Context, path string) error {
	profile, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	resolver := entitlement.New(c.gateway)
	ent, err := resolver.Resolve(ctx, profile)
	if err != nil {
		return err
	}
	if !ent.CanAnalyze() {
		return fmt.Errorf("%w (%d of %d used), buy a subscription with: buy %s",
			entitlement.ErrQuotaExceeded, ent.Used, ent.Limit, catalog[0].ProductID)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	session, err := c.gateway.Analyze(ctx, filepath.Base(path), image, profile.IsPremium)
	if err != nil {
		if api.IsKind(err, api.KindQuota) {
			return fmt.Errorf("free analysis limit reached, buy a subscription with: buy %s", catalog[0].ProductID)
		}
		return err
	}

	fmt.Println("session", session.ID)
	for label, score := range session.Scores {
		if score > 0 {
			fmt.Printf("  %-12s %.0f%%\n", label, score*100)
		}
	}
	fmt.Println("annotated image:", session.AnnotatedImageURL)
	return nil
}

// buy выполняет покупку или восстановление через sandbox-магазин и
// ждет подтверждения подписки.
func (c *cli) buy(ctx context.Context, productID string, restore bool) error {
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	store := purchase.NewSandboxStore(models.PlatformApple, catalog)
	activated := make(chan api.SubscriptionStatus, 1)
	bridge := purchase.New(store, c.gateway, func(status api.SubscriptionStatus) {
		activated <- status
	}, c.log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go bridge.Run(runCtx)

	if restore {
		if err := bridge.Restore(ctx); err != nil {
			return err
		}
	} else if err := bridge.Buy(ctx, productID); err != nil {
		return err
	}

	select {
	case status := <-activated:
		if _, err := c.ctrl.RefreshEntitlement(ctx); err != nil {
			c.log.Warn("failed to refresh profile after purchase", "err", err)
		}
		fmt.Println("subscription active, premium:", status.IsPremium)
		if status.Expiry != nil {
			fmt.Println("expires:", status.Expiry.Format(time.DateTime))
		}
		return nil
	case <-time.After(10 * time.Second):
		if restore {
			fmt.Println("nothing to restore")
			return nil
		}
		return fmt.Errorf("purchase was not confirmed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func topLabel(scores map[string]float64) string {
	best, bestScore := "", -1.0
	for label, score := range scores {
		if score > bestScore {
			best, bestScore = label, score
		}
	}
	return best
}
