package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/yourusername/teamquiz-api/internal/app"
	"github.com/yourusername/teamquiz-api/internal/config"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/service"
	"github.com/yourusername/teamquiz-api/pkg/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Администрирование teamquiz: миграции, команды, банки вопросов, провижининг",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "путь к config.yaml")

	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newTeamCmd(&configPath))
	root.AddCommand(newMemberCmd(&configPath))
	root.AddCommand(newImportCmd(&configPath))
	root.AddCommand(newProvisionCmd(&configPath))
	return root
}

// loadServices поднимает БД, опционально Redis (для сброса кеша вопросов) и сервисы
func loadServices(configPath string) (*app.Services, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), cfg.Database.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		client, err := database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("[quizctl] Redis недоступен, кеш вопросов не будет сброшен: %v", err)
		} else {
			redisClient = client
		}
	}

	services, err := app.NewServices(cfg, db, redisClient, nil)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if redisClient != nil {
			redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return services, cleanup, nil
}

func openSQL(configPath string) (*sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseUUIDFlag(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("--%s: некорректный UUID %q", name, value)
	}
	return id, nil
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var source string

	migrate := &cobra.Command{Use: "migrate", Short: "SQL-миграции базы данных"}
	migrate.PersistentFlags().StringVar(&source, "source", database.DefaultMigrationsSource, "источник миграций")

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить новые миграции",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openSQL(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.MigrateUp(db, source)
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Показать текущую версию миграций",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openSQL(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			version, dirty, err := database.MigrationVersion(db, source)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Снять флаг dirty, выставив версию вручную",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("некорректная версия %q: %w", args[0], err)
			}
			db, err := openSQL(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.ForceMigrationVersion(db, source, version)
		},
	})
	return migrate
}

// parseMemberSpec разбирает "имя" или "имя=bankID"
func parseMemberSpec(spec string) (service.NewMember, error) {
	name, bank, hasBank := strings.Cut(spec, "=")
	m := service.NewMember{Name: strings.TrimSpace(name)}
	if m.Name == "" {
		return m, fmt.Errorf("--member: пустое имя в %q", spec)
	}
	if hasBank {
		bankID, err := parseUUIDFlag("member", strings.TrimSpace(bank))
		if err != nil {
			return m, err
		}
		m.BankID = &bankID
	}
	return m, nil
}

func newTeamCmd(configPath *string) *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Команды"}

	var name, password string
	var memberSpecs []string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Создать команду с участниками",
		RunE: func(cmd *cobra.Command, _ []string) error {
			members := make([]service.NewMember, 0, len(memberSpecs))
			for _, spec := range memberSpecs {
				m, err := parseMemberSpec(spec)
				if err != nil {
					return err
				}
				members = append(members, m)
			}

			services, cleanup, err := loadServices(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			created, err := services.Teams.CreateTeam(ctx, name, password, members)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "team %s (%s)\n", created.Name, created.ID)
			for _, m := range created.Members {
				line := fmt.Sprintf("  member %s (%s)", m.Name, m.ID)
				if m.HasAssignedBank() {
					n, err := services.Progress.ProvisionMember(ctx, m.ID)
					if err != nil {
						return err
					}
					line += fmt.Sprintf(" bank=%s provisioned=%d", *m.AssignedQuestionBankID, n)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "имя команды")
	createCmd.Flags().StringVar(&password, "password", "", "пароль команды (не короче 6 символов)")
	createCmd.Flags().StringArrayVar(&memberSpecs, "member", nil, "участник: имя или имя=bankID (можно несколько)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("password")

	team.AddCommand(createCmd)
	return team
}

func newMemberCmd(configPath *string) *cobra.Command {
	member := &cobra.Command{Use: "member", Short: "Участники команд"}

	var memberFlag, bankFlag string
	var skipProvision bool

	assignCmd := &cobra.Command{
		Use:   "assign",
		Short: "Закрепить за участником банк вопросов",
		RunE: func(cmd *cobra.Command, _ []string) error {
			memberID, err := parseUUIDFlag("member", memberFlag)
			if err != nil {
				return err
			}
			bankID, err := parseUUIDFlag("bank", bankFlag)
			if err != nil {
				return err
			}

			services, cleanup, err := loadServices(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if _, err := services.Teams.AssignBank(ctx, memberID, bankID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "member %s assigned to bank %s\n", memberID, bankID)
			if skipProvision {
				return nil
			}
			n, err := services.Progress.ProvisionMember(ctx, memberID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "provisioned %d progress records\n", n)
			return nil
		},
	}
	assignCmd.Flags().StringVar(&memberFlag, "member", "", "ID участника")
	assignCmd.Flags().StringVar(&bankFlag, "bank", "", "ID банка вопросов")
	assignCmd.Flags().BoolVar(&skipProvision, "no-provision", false, "не создавать записи прогресса")
	_ = assignCmd.MarkFlagRequired("member")
	_ = assignCmd.MarkFlagRequired("bank")

	member.AddCommand(assignCmd)
	return member
}

func newImportCmd(configPath *string) *cobra.Command {
	var file, teamFlag, bankFlag, name, description, mode string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Импортировать вопросы из XLSX (столбцы: вопрос | ответ | metadata JSON)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			questions, err := service.ParseQuestionsXLSX(f)
			if err != nil {
				return err
			}

			services, cleanup, err := loadServices(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			var result *service.ImportResult
			if bankFlag != "" {
				bankID, err := parseUUIDFlag("bank", bankFlag)
				if err != nil {
					return err
				}
				bank, err := services.Questions.GetBank(ctx, bankID)
				if err != nil {
					return err
				}
				result, err = services.Questions.AddQuestions(ctx, bank, questions)
				if err != nil {
					return err
				}
			} else {
				teamID, err := parseUUIDFlag("team", teamFlag)
				if err != nil {
					return err
				}
				bank := &entity.QuestionBank{TeamID: teamID, Name: name, Description: description, Mode: mode}
				result, err = services.Questions.ImportBank(ctx, bank, questions)
				if err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bank %s (%s): imported %d questions, provisioned %d progress records\n",
				result.Bank.Name, result.Bank.ID, result.Questions, result.Provisioned)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "путь к XLSX")
	cmd.Flags().StringVar(&teamFlag, "team", "", "ID команды (для нового банка)")
	cmd.Flags().StringVar(&bankFlag, "bank", "", "ID существующего банка (добавить вопросы)")
	cmd.Flags().StringVar(&name, "name", "", "название нового банка")
	cmd.Flags().StringVar(&description, "description", "", "описание нового банка")
	cmd.Flags().StringVar(&mode, "mode", entity.BankModeStandard, "режим банка: standard|poetry-pair")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("team", "bank")
	cmd.MarkFlagsOneRequired("team", "bank")
	return cmd
}

func newProvisionCmd(configPath *string) *cobra.Command {
	var memberFlag, bankFlag string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Создать недостающие записи прогресса (повторный запуск безопасен)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, cleanup, err := loadServices(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			var created int64
			if memberFlag != "" {
				memberID, err := parseUUIDFlag("member", memberFlag)
				if err != nil {
					return err
				}
				created, err = services.Progress.ProvisionMember(ctx, memberID)
				if err != nil {
					return err
				}
			} else {
				bankID, err := parseUUIDFlag("bank", bankFlag)
				if err != nil {
					return err
				}
				created, err = services.Progress.ProvisionBank(ctx, bankID)
				if err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "provisioned %d progress records\n", created)
			return nil
		},
	}
	cmd.Flags().StringVar(&memberFlag, "member", "", "ID участника")
	cmd.Flags().StringVar(&bankFlag, "bank", "", "ID банка (все закрепленные участники)")
	cmd.MarkFlagsMutuallyExclusive("member", "bank")
	cmd.MarkFlagsOneRequired("member", "bank")
	return cmd
}
