// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/userz/internal/app/accounts"
	"github.com/dalemusser/userz/internal/app/store/audit"
	userstore "github.com/dalemusser/userz/internal/app/store/users"
	"github.com/dalemusser/userz/internal/app/system/auditlog"
	"github.com/dalemusser/userz/internal/app/system/passwords"
	"go.uber.org/zap"
)

// AuditSource tags audit events written by the CLI.
const AuditSource = "cli"

// BuildAccounts wires the account service over the connected database.
func BuildAccounts(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*accounts.Service, error) {
	hasher, err := passwords.NewBcrypt(appCfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	auditLog := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Source: AuditSource,
	})

	return accounts.New(
		userstore.New(deps.MongoDatabase),
		hasher,
		auditLog,
		appCfg.Formatter(),
		logger,
	), nil
}
