package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/annel0/skygrid/internal/app"
	"github.com/annel0/skygrid/internal/auth"
	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Server — административный REST API генератора
type Server struct {
	router  *gin.Engine
	engine  *app.Engine
	signer  *auth.Signer
	metrics *ServerMetrics
	log     *logging.Logger
	http    *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr        string      // адрес для запуска сервера, ":8088"
	Engine      *app.Engine // движок генерации
	AdminSecret string      // base64; пустой — изменяющие маршруты открыты
	ServiceName string      // имя сервиса для трассировки
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewServer создает новый REST API сервер
func NewServer(config Config) (*Server, error) {
	if config.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "skygrid"
	}

	server := &Server{
		engine:  config.Engine,
		metrics: NewServerMetrics(),
		log:     logging.GetAPILogger(),
	}

	if config.AdminSecret != "" {
		signer, err := auth.NewSigner(config.AdminSecret)
		if err != nil {
			return nil, fmt.Errorf("api: %w", err)
		}
		server.signer = signer
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger(server.log).Handler())

	reg := config.Engine.Registry()
	promMw := middleware.NewPrometheusMiddleware("skygrid_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, reg)

	server.router = router
	server.setupRoutes()

	server.http = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server, nil
}

// setupRoutes настраивает маршруты REST API
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/realms", s.handleRealms)

	realm := api.Group("/realms/:realm")
	realm.Use(s.realmMiddleware())
	{
		realm.GET("/catalog", s.handleGetCatalog)
		realm.GET("/columns/:x/:z", s.handleColumn)
		realm.GET("/spawns", s.handleSpawns)

		// Изменяющие маршруты (JWT, если задан секрет)
		admin := realm.Group("/")
		admin.Use(s.adminMiddleware())
		{
			admin.PUT("/catalog", s.handlePutCatalog)
			admin.POST("/catalog/reload", s.handleReloadCatalog)
		}
	}
}

// Handler возвращает http.Handler (для тестов)
func (s *Server) Handler() http.Handler { return s.router }

// Start запускает REST сервер; блокируется до Shutdown
func (s *Server) Start() error {
	s.log.Info("REST API слушает %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// statusFor переводит ошибку движка в HTTP-статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownRealm):
		return http.StatusNotFound
	case errors.Is(err, host.ErrBiomesUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrDrainUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStatus возвращает состояние процесса и генератора
func (s *Server) handleStatus(c *gin.Context) {
	cfg := s.engine.Config()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние сервера",
		Data: gin.H{
			"process": s.metrics.Snapshot(),
			"grid":    cfg.Grid,
			"queue":   cfg.Queue.Backend,
			"pending": s.engine.Pending(),
		},
	})
}

type realmInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

func (s *Server) handleRealms(c *gin.Context) {
	var out []realmInfo
	for _, r := range s.engine.Realms() {
		cat, err := s.engine.Catalog(r)
		if err != nil {
			respondError(c, statusFor(err), err.Error())
			return
		}
		out = append(out, realmInfo{ID: r.ID, Name: r.Name, Entries: cat.Len()})
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Миры", Data: out})
}

func realmFrom(c *gin.Context) catalog.Realm {
	return c.MustGet("realm").(catalog.Realm)
}

func (s *Server) handleGetCatalog(c *gin.Context) {
	cat, err := s.engine.Catalog(realmFrom(c))
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Каталог", Data: cat.Entries})
}

func (s *Server) handlePutCatalog(c *gin.Context) {
	var entries []catalog.Entry
	if err := c.ShouldBindJSON(&entries); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат каталога")
		return
	}

	realm := realmFrom(c)
	dropped, err := s.engine.ReplaceCatalog(realm, entries)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	s.log.Info("Каталог %s заменён через API: %d записей, отброшено %d", realm, len(entries), dropped)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Каталог сохранён",
		Data:    gin.H{"entries": len(entries), "dropped": dropped},
	})
}

func (s *Server) handleReloadCatalog(c *gin.Context) {
	cat, err := s.engine.ReloadCatalog(realmFrom(c))
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Каталог перечитан", Data: gin.H{"entries": cat.Len()}})
}

// ColumnSummary — краткое описание сгенерированной колонки
type ColumnSummary struct {
	Realm     string         `json:"realm"`
	X         int            `json:"x"`
	Z         int            `json:"z"`
	Height    int            `json:"height"`
	Levels    []int          `json:"levels"`
	Histogram map[string]int `json:"histogram"`
	Biomes    map[int]int    `json:"biomes"`
}

func (s *Server) handleColumn(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	z, errZ := strconv.Atoi(c.Param("z"))
	if errX != nil || errZ != nil {
		respondError(c, http.StatusBadRequest, "Координаты чанка должны быть целыми числами")
		return
	}

	realm := realmFrom(c)
	col, err := s.engine.Column(realm, x, z)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}

	summary := ColumnSummary{
		Realm:     realm.Name,
		X:         x,
		Z:         z,
		Height:    col.Height(),
		Levels:    []int{},
		Histogram: make(map[string]int),
		Biomes:    make(map[int]int),
	}
	for y := 0; y < col.Height(); y++ {
		if col.LevelPopulated(y) {
			summary.Levels = append(summary.Levels, y)
		}
	}
	for id, n := range col.Histogram() {
		summary.Histogram[string(id)] = n
	}
	for _, b := range col.Biomes() {
		summary.Biomes[b]++
	}
	sort.Ints(summary.Levels)

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Колонка сгенерирована", Data: summary})
}

func (s *Server) handleSpawns(c *gin.Context) {
	creature := host.CreatureType(c.DefaultQuery("type", string(host.CreatureMonster)))
	x, _ := strconv.Atoi(c.DefaultQuery("x", "0"))
	y, _ := strconv.Atoi(c.DefaultQuery("y", "64"))
	z, _ := strconv.Atoi(c.DefaultQuery("z", "0"))

	spawns, err := s.engine.SpawnableCreatures(realmFrom(c), creature, x, y, z)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Таблица спавна", Data: spawns})
}
