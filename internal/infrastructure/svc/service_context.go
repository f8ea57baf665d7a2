package svc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"xfeed/internal/application/container"
	"xfeed/internal/application/port"
	"xfeed/internal/application/usecase/monitor"
	"xfeed/internal/infrastructure/config"
	"xfeed/internal/infrastructure/pricefeed"
	"xfeed/internal/infrastructure/storage"
	"xfeed/internal/infrastructure/storage/composite"
	pgrepo "xfeed/internal/infrastructure/storage/postgres"
	redisrepo "xfeed/internal/infrastructure/storage/redis"
	sqliterepo "xfeed/internal/infrastructure/storage/sqlite"
	"xfeed/internal/infrastructure/websocket"
	"xfeed/internal/interfaces/console"
	httpapi "xfeed/internal/interfaces/http"

	// 注册数据源
	_ "xfeed/internal/infrastructure/exchange/binance"
	_ "xfeed/internal/infrastructure/exchange/bybit"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	redisClient *redisclient.Client
	repos       []port.Repository

	// 输出端口
	Sink port.Sink

	// 应用组件
	Container   *container.Container
	Source      port.FeedSource
	Broadcaster *monitor.Broadcaster
	Controller  *monitor.Controller
	Reporter    *monitor.Reporter
	HTTPServer  *httpapi.Server // http.enabled=false 时为空

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 所有依赖初始化都在这里完成；不启动任何协程，调用 Run 才开始同步
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(os.Stdout),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 按依赖顺序初始化：存储 -> 数据源 -> 控制器 -> 观察者
func (sc *ServiceContext) initializeComponents() error {
	repo, err := sc.initializeStorage()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	sc.Container = container.New(repo, sc.Config.Granularity())
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing repositories")
		return sc.Container.Close()
	})

	factory, ok := pricefeed.Get(sc.Config.Feed.Source)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoFeedSource, sc.Config.Feed.Source)
	}
	sc.Source = factory(sc.feedOptions())

	sc.Broadcaster = monitor.NewBroadcaster()
	sc.Controller = monitor.NewController(monitor.ControllerDeps{
		Source:           sc.Source,
		Preferences:      sc.Container.PreferenceService(),
		Broadcaster:      sc.Broadcaster,
		Instrument:       sc.Config.Feed.Instrument,
		HistoryLimit:     sc.Config.Feed.HistoryLimit,
		ThrottleInterval: time.Duration(sc.Config.Feed.ThrottleMs) * time.Millisecond,
	})
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sync controller")
		err := sc.Controller.Close()
		sc.Broadcaster.Close()
		return err
	})

	sc.Reporter = monitor.NewReporter(monitor.ReporterDeps{
		Sink:       sc.Sink,
		Prices:     sc.Container.PriceService(),
		Snapshots:  sc.Container.SnapshotService(),
		PrintEvery: time.Duration(sc.Config.App.PrintEveryMin) * time.Minute,
		Color:      sc.Config.App.Color,
	})
	sc.Broadcaster.Subscribe(sc.Reporter)

	if sc.redisClient != nil {
		pub := redisrepo.NewViewPublisher(sc.redisClient, sc.Config.Redis.ViewChannel)
		sc.Broadcaster.Subscribe(pub)
		log.Info().Str("channel", pub.Channel()).Msg("✓ Redis view publisher subscribed")
	}

	if sc.Config.HTTP.Enabled {
		hub := httpapi.NewHub()
		sc.Broadcaster.Subscribe(hub)
		sc.HTTPServer = httpapi.NewServer(sc.Config.HTTP.Addr, sc.Controller, hub)
	}

	log.Info().
		Str("feed", sc.Source.Name).
		Str("instrument", sc.Config.Feed.Instrument).
		Int("repos", len(sc.repos)).
		Bool("http", sc.HTTPServer != nil).
		Msg("✓ All components initialized")
	return nil
}

func (sc *ServiceContext) feedOptions() pricefeed.Options {
	opts := pricefeed.Options{Stream: websocket.DefaultConfig}
	opts.Stream.ReconnectDelay = time.Duration(sc.Config.Feed.ReconnectDelayMs) * time.Millisecond

	switch sc.Config.Feed.Source {
	case "BINANCE":
		opts.RestURL = sc.Config.Exchange.Binance.RestURL
		opts.WsURL = sc.Config.Exchange.Binance.WsURL
	case "BYBIT":
		opts.RestURL = sc.Config.Exchange.Bybit.RestURL
		opts.WsURL = sc.Config.Exchange.Bybit.WsURL
	}
	return opts
}

// initializeStorage 初始化启用的存储 (Redis / SQLite / Postgres)，写入同时扇出
// 都未启用时使用内存仓储
func (sc *ServiceContext) initializeStorage() (port.Repository, error) {
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return nil, fmt.Errorf("redis initialization failed: %w", err)
		}
	}
	if sc.Config.SQLite.Enabled {
		if err := sc.initSQLite(); err != nil {
			return nil, fmt.Errorf("sqlite initialization failed: %w", err)
		}
	}
	if sc.Config.Postgres.Enabled {
		if err := sc.initPostgres(); err != nil {
			return nil, fmt.Errorf("postgres initialization failed: %w", err)
		}
	}

	if len(sc.repos) == 0 {
		log.Info().Msg("no storage enabled, using in-memory repository")
		return storage.NewInMemoryRepository(0), nil
	}
	return composite.New(sc.repos...), nil
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	prefix := sc.Config.Redis.Prefix
	sc.repos = append(sc.repos, redisrepo.New(rdb, prefix, ttl, prefix+":snapshots", prefix+":snapshot"))

	// 注册关闭回调
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

// initSQLite 初始化 SQLite 数据库，连接由 Container 关闭
func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite repo creation failed: %w", err)
	}
	sc.repos = append(sc.repos, repo)

	log.Info().
		Str("path", sc.Config.SQLite.Path).
		Msg("✓ SQLite initialized")
	return nil
}

func (sc *ServiceContext) initPostgres() error {
	repo, err := pgrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres repo creation failed: %w", err)
	}
	sc.repos = append(sc.repos, repo)

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

// Run 启动控制器、控制台输出与 HTTP 服务，阻塞直到 ctx 取消或任一组件出错
func (sc *ServiceContext) Run(ctx context.Context) error {
	if err := sc.Controller.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sc.Reporter.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if sc.HTTPServer != nil {
		g.Go(func() error {
			return sc.HTTPServer.Run(gctx)
		})
	}
	return g.Wait()
}

// Close 按照初始化的相反顺序释放资源；可重复调用
func (sc *ServiceContext) Close() error {
	chain := sc.closerChain
	sc.closerChain = nil
	for i := len(chain) - 1; i >= 0; i-- {
		if err := chain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
