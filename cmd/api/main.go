package main

import (
	"time"

	"app/internal/broker"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logger"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.GoEnv); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Get()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.StockMovement{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//注文キャッシュ（REDIS_ADDRが空なら無効）
	var orderCache usecase.OrderCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisOrderCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 5*time.Minute)
		if err != nil {
			log.Fatal("redis connect failed", zap.Error(err))
		}
		defer rc.Close()
		orderCache = rc
	}

	//イベント発行（KAFKA_BROKERSが空なら無効）
	var events usecase.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := broker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		events = kp
	}

	//JWT issuer
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, issuer)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, events)
	lifecycleUC := usecase.NewOrderLifecycleUsecase(txManager, events, orderCache)
	queryUC := usecase.NewOrderQueryUsecase(txManager, orderCache)
	productUC := usecase.NewProductUsecase(txManager, productRepo, usecase.FirstRetailerPolicy)
	auditUC := usecase.NewAuditQueryUsecase(auditRepo)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	productH := handler.NewProductHandler(productUC)
	orderH := handler.NewOrderHandler(checkoutUC, lifecycleUC, queryUC)
	adminH := handler.NewAdminHandler(productUC, queryUC, auditUC)

	//Server起動
	e := server.New()
	server.RegisterRoutes(e, cfg, authH, productH, orderH, adminH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
