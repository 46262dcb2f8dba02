package pgsql

import (
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider builds every repository over one pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TransactionRepo: newPgxTransactionRepository(dbPool),
		ParticipantRepo: newPgxParticipantRepository(dbPool),
		SettingsRepo:    newPgxSettingsRepository(dbPool),
		ScheduleRepo:    newPgxScheduleRepository(dbPool),
	}
}
