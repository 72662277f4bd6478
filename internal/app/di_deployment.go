package app

import (
	"fmt"

	deploymentHTTP "github.com/allisson/provision/internal/deployment/http"
	deploymentRepository "github.com/allisson/provision/internal/deployment/repository"
	deploymentUseCase "github.com/allisson/provision/internal/deployment/usecase"
	"github.com/allisson/provision/internal/runner"
)

// SessionRepository returns the session repository based on database driver.
func (c *Container) SessionRepository() (deploymentUseCase.SessionRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		c.sessionRepo, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

// Broker returns the apply output stream broker.
func (c *Container) Broker() *runner.Broker {
	c.brokerInit.Do(func() {
		c.broker = runner.NewBroker()
	})
	return c.broker
}

// IaCRunner returns the external tool runner.
func (c *Container) IaCRunner() runner.Runner {
	c.iacRunnerInit.Do(func() {
		c.iacRunner = runner.NewExecRunner(
			c.config.RunnerBinary,
			c.config.RunnerPlanTimeout,
			c.config.RunnerApplyTimeout,
			c.Logger(),
		)
	})
	return c.iacRunner
}

// Workspace returns the tool working directory manager.
func (c *Container) Workspace() deploymentUseCase.WorkspaceManager {
	c.workspaceInit.Do(func() {
		c.workspace = runner.NewWorkspace(c.config.RunnerWorkDir)
	})
	return c.workspace
}

// SessionUseCase returns the deployment session use case.
func (c *Container) SessionUseCase() (deploymentUseCase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// SessionHandler returns the HTTP handler for session lifecycle operations.
func (c *Container) SessionHandler() (*deploymentHTTP.SessionHandler, error) {
	var err error
	c.sessionHandlerInit.Do(func() {
		c.sessionHandler, err = c.initSessionHandler()
		if err != nil {
			c.initErrors["sessionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionHandler"]; exists {
		return nil, storedErr
	}
	return c.sessionHandler, nil
}

// initSessionRepository creates the session repository instance.
func (c *Container) initSessionRepository() (deploymentUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return deploymentRepository.NewMySQLSessionRepository(db), nil
	case "postgres":
		return deploymentRepository.NewPostgreSQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSessionUseCase creates the session orchestrator with all its dependencies.
func (c *Container) initSessionUseCase() (deploymentUseCase.SessionUseCase, error) {
	logger := c.Logger()

	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session use case: %w", err)
	}

	validator, err := c.Validator()
	if err != nil {
		return nil, fmt.Errorf("failed to get validator for session use case: %w", err)
	}

	quotaLedger, err := c.QuotaLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota ledger for session use case: %w", err)
	}

	audit, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for session use case: %w", err)
	}

	vault, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for session use case: %w", err)
	}

	baseUseCase := deploymentUseCase.NewSessionUseCase(
		sessionRepo,
		validator,
		quotaLedger,
		audit,
		c.IaCRunner(),
		c.Workspace(),
		c.Broker(),
		vault,
		c.config.SessionTTL,
		logger,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for session use case: %w", err)
		}
		return deploymentUseCase.NewSessionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSessionHandler creates the session HTTP handler.
func (c *Container) initSessionHandler() (*deploymentHTTP.SessionHandler, error) {
	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for session handler: %w", err)
	}

	return deploymentHTTP.NewSessionHandler(sessionUseCase, c.Logger()), nil
}
