package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/database"
	"github.com/stemsi/sekolah-backend/internal/logger"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/repository"
	"github.com/stemsi/sekolah-backend/internal/service"
)

func main() {
	var branchFlag string
	flag.StringVar(&branchFlag, "branch", "", "Branch UUID to seed (prompted when empty)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	feeGroupService := service.NewFeeGroupService(
		repository.NewFeeGroupRepository(pool),
		service.NewRedisBranchLocker(rdb, cfg.BranchLockTTL, cfg.BranchLockWait, log),
		service.NewRedisConcessionCache(rdb, cfg.ConcessionCacheTTL, log),
		log,
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Seed Fee Groups ===")

	if branchFlag == "" {
		fmt.Print("Enter Branch ID: ")
		branchFlag = readLine(reader)
	}
	branchID, err := uuid.Parse(branchFlag)
	if err != nil {
		fmt.Println("Error: Branch ID must be a UUID")
		return
	}

	fmt.Println("Enter one fee group per prompt, empty name to finish.")
	created := 0
	for {
		fmt.Print("Name: ")
		name := readLine(reader)
		if name == "" {
			break
		}

		fmt.Print("Periodicity (monthly/quarterly/half_yearly/yearly/one_time) [yearly]: ")
		periodicity := readLine(reader)
		if periodicity == "" {
			periodicity = string(model.FeePeriodicityYearly)
		}
		if !model.IsValidFeePeriodicity(periodicity) {
			fmt.Printf("Error: unknown periodicity %q, skipped\n", periodicity)
			continue
		}

		group, err := feeGroupService.Create(ctx, branchID, model.CreateFeeGroupRequest{
			Name:        name,
			Periodicity: periodicity,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				fmt.Printf("Error: fee group %q already exists, skipped\n", name)
				continue
			}
			log.Fatal().Err(err).Msg("Failed to create fee group")
		}
		created++
		fmt.Printf("Created %s (%s)\n", group.Name, group.ID)
	}

	fmt.Printf("\nDone. %d fee group(s) added to branch %s.\n", created, branchID)
	if created > 0 {
		fmt.Println("Existing concessions of this branch must be updated to cover the new groups.")
	}
}

func readLine(r *bufio.Reader) string {
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
