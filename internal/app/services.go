package app

import (
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/yourusername/teamquiz-api/internal/config"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	pgRepo "github.com/yourusername/teamquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/teamquiz-api/internal/repository/redis"
	"github.com/yourusername/teamquiz-api/internal/service"
	"github.com/yourusername/teamquiz-api/internal/service/review"
	"github.com/yourusername/teamquiz-api/pkg/auth"
)

// Services - сервисы приложения, общие для HTTP API и quizctl
type Services struct {
	Progress  *service.ProgressService
	Questions *service.QuestionService
	Teams     *service.TeamService
	JWT       *auth.JWTService
}

// NewServices собирает репозитории и сервисы.
// redisClient и notifier могут быть nil: тогда кеш, идемпотентность и уведомления отключены.
func NewServices(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, notifier service.Notifier) (*Services, error) {
	progressRepo := pgRepo.NewProgressRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	bankRepo := pgRepo.NewQuestionBankRepo(db)
	teamRepo := pgRepo.NewTeamRepo(db)
	memberRepo := pgRepo.NewMemberRepo(db)

	var cacheRepo repository.CacheRepository
	if redisClient != nil {
		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize CacheRepo: %w", err)
		}
		cacheRepo = repo
	} else {
		log.Println("[App] Redis не настроен: кеш вопросов и идемпотентность ответов отключены")
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWTService: %w", err)
	}

	schedulerCfg := cfg.Review.SchedulerConfig()
	if err := schedulerCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid review config: %w", err)
	}
	scheduler := review.NewScheduler(schedulerCfg)

	progressService := service.NewProgressService(progressRepo, questionRepo, memberRepo, cacheRepo, scheduler, notifier, cfg.Review.IdempotencyTTL)
	questionService := service.NewQuestionService(bankRepo, questionRepo, cacheRepo, progressService, service.QuestionCacheConfig{
		TTL:       cfg.Redis.QuestionCacheTTL,
		LocalSize: cfg.Redis.LocalCacheSize,
		LocalTTL:  cfg.Redis.LocalCacheTTL,
	})
	teamService := service.NewTeamService(teamRepo, memberRepo, bankRepo, jwtService)

	return &Services{
		Progress:  progressService,
		Questions: questionService,
		Teams:     teamService,
		JWT:       jwtService,
	}, nil
}
