package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/skygrid/internal/api"
	"github.com/annel0/skygrid/internal/app"
	"github.com/annel0/skygrid/internal/auth"
	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/config"
	"github.com/annel0/skygrid/internal/export"
	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/observability"
	"github.com/annel0/skygrid/internal/postgen"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run выполняет команду и возвращает код выхода; отложенные закрытия
// движка и логов успевают отработать до os.Exit
func run(args []string) int {
	fs := flag.NewFlagSet("gridgen", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "путь к YAML-конфигурации (или SKYGRID_CONFIG)")
		cmd        = fs.String("cmd", "serve", "команда: serve | export | catalog | token")
		realmName  = fs.String("realm", "overworld", "мир: overworld | nether | end или ID измерения")
		centerX    = fs.Int("x", 0, "X центрального чанка")
		centerZ    = fs.Int("z", 0, "Z центрального чанка")
		radius     = fs.Int("radius", 0, "радиус квадрата чанков для export")
		out        = fs.String("out", "out", "каталог для export")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Ошибка загрузки конфигурации: %v", err)
		return 1
	}

	closeLogs, err := setupLogging(cfg)
	if err != nil {
		log.Printf("Ошибка инициализации логирования: %v", err)
		return 1
	}
	defer closeLogs()

	if *cmd == "token" {
		return runToken(cfg)
	}

	engine, err := app.New(app.Options{Config: cfg})
	if err != nil {
		logging.Error("Ошибка создания движка: %v", err)
		return 1
	}
	defer engine.Close()

	switch *cmd {
	case "serve":
		err = runServe(engine, cfg)
	case "export":
		err = runExport(engine, *realmName, *centerX, *centerZ, *radius, *out)
	case "catalog":
		err = runCatalog(engine, *realmName)
	default:
		err = fmt.Errorf("неизвестная команда %q", *cmd)
	}
	if err != nil {
		logging.Error("%v", err)
		return 1
	}
	return 0
}

// setupLogging поднимает глобальный логгер и задаёт уровни до того, как
// компоненты получат свои логгеры
func setupLogging(cfg *config.Config) (func(), error) {
	if err := logging.InitDefaultLogger("gridgen", cfg.Logging.Dir); err != nil {
		return nil, err
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	logging.GetLoggerManager().SetAllLevels(level, level)

	return func() {
		_ = logging.GetLoggerManager().CloseAll()
		logging.CloseDefaultLogger()
	}, nil
}

func runServe(engine *app.Engine, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	server, err := api.NewServer(api.Config{
		Addr:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Engine:      engine,
		AdminSecret: cfg.Server.AdminSecret,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}

	// Автономный хост не умеет финализировать тайл-сущности: запросы только журналируются
	finalizer, err := engine.NewFinalizer(func(ctx context.Context, req postgen.Request) error {
		logging.Debug("Финализация %s", req)
		return nil
	}, 2*time.Second, 256)
	if err == nil {
		finalizer.Start(ctx)
		defer finalizer.Stop()
	} else {
		logging.Info("Очередь %s только публикует запросы, финализатор не запущен", cfg.Queue.Backend)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info("Получен сигнал завершения, останавливаем сервер...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runExport(engine *app.Engine, realmName string, cx, cz, radius int, out string) error {
	realm, err := catalog.ParseRealm(realmName)
	if err != nil {
		return err
	}
	if radius < 0 {
		radius = 0
	}

	written := 0
	for x := cx - radius; x <= cx+radius; x++ {
		for z := cz - radius; z <= cz+radius; z++ {
			col, err := engine.Column(realm, x, z)
			if err != nil {
				return err
			}
			path, err := export.SaveColumn(out, col)
			if err != nil {
				return err
			}
			logging.Debug("Колонка %s записана в %s", col.ChunkCoords(), path)
			written++
		}
	}
	logging.Info("Экспортировано %d колонок мира %s в %s", written, realm, out)
	return nil
}

func runCatalog(engine *app.Engine, realmName string) error {
	realm, err := catalog.ParseRealm(realmName)
	if err != nil {
		return err
	}
	c, err := engine.Catalog(realm)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Entries)
}

func runToken(cfg *config.Config) int {
	if cfg.Server.AdminSecret == "" {
		fmt.Fprintln(os.Stderr, "server.admin_secret не задан; новый секрет:")
		fmt.Println(auth.GenerateSecureSecret())
		return 0
	}
	signer, err := auth.NewSigner(cfg.Server.AdminSecret)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	token, err := signer.Issue("gridgen", 24*time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
