package app

import (
	"fmt"

	ledgerRepository "github.com/allisson/provision/internal/ledger/repository"
	ledgerUseCase "github.com/allisson/provision/internal/ledger/usecase"
	policyRepository "github.com/allisson/provision/internal/policy/repository"
	policyUseCase "github.com/allisson/provision/internal/policy/usecase"
)

// QuotaRepository returns the quota repository based on database driver.
func (c *Container) QuotaRepository() (ledgerUseCase.QuotaRepository, error) {
	var err error
	c.quotaRepoInit.Do(func() {
		c.quotaRepo, err = c.initQuotaRepository()
		if err != nil {
			c.initErrors["quotaRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["quotaRepo"]; exists {
		return nil, storedErr
	}
	return c.quotaRepo, nil
}

// GrantRepository returns the permission grant repository based on database driver.
func (c *Container) GrantRepository() (ledgerUseCase.GrantRepository, error) {
	var err error
	c.grantRepoInit.Do(func() {
		c.grantRepo, err = c.initGrantRepository()
		if err != nil {
			c.initErrors["grantRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grantRepo"]; exists {
		return nil, storedErr
	}
	return c.grantRepo, nil
}

// RuleRepository returns the policy rule repository based on database driver.
func (c *Container) RuleRepository() (policyUseCase.RuleRepository, error) {
	var err error
	c.ruleRepoInit.Do(func() {
		c.ruleRepo, err = c.initRuleRepository()
		if err != nil {
			c.initErrors["ruleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleRepo"]; exists {
		return nil, storedErr
	}
	return c.ruleRepo, nil
}

// QuotaLedger returns the quota ledger use case.
func (c *Container) QuotaLedger() (ledgerUseCase.QuotaLedger, error) {
	var err error
	c.quotaLedgerInit.Do(func() {
		c.quotaLedger, err = c.initQuotaLedger()
		if err != nil {
			c.initErrors["quotaLedger"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["quotaLedger"]; exists {
		return nil, storedErr
	}
	return c.quotaLedger, nil
}

// GrantReader returns the permission grant reader.
func (c *Container) GrantReader() (ledgerUseCase.GrantReader, error) {
	var err error
	c.grantReaderInit.Do(func() {
		c.grantReader, err = c.initGrantReader()
		if err != nil {
			c.initErrors["grantReader"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grantReader"]; exists {
		return nil, storedErr
	}
	return c.grantReader, nil
}

// Validator returns the policy and quota validator.
func (c *Container) Validator() (policyUseCase.Validator, error) {
	var err error
	c.validatorInit.Do(func() {
		c.validator, err = c.initValidator()
		if err != nil {
			c.initErrors["validator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["validator"]; exists {
		return nil, storedErr
	}
	return c.validator, nil
}

// initQuotaRepository creates the quota repository instance.
func (c *Container) initQuotaRepository() (ledgerUseCase.QuotaRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for quota repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return ledgerRepository.NewMySQLQuotaRepository(db), nil
	case "postgres":
		return ledgerRepository.NewPostgreSQLQuotaRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initGrantRepository creates the permission grant repository instance.
func (c *Container) initGrantRepository() (ledgerUseCase.GrantRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for grant repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return ledgerRepository.NewMySQLGrantRepository(db), nil
	case "postgres":
		return ledgerRepository.NewPostgreSQLGrantRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRuleRepository creates the policy rule repository instance.
func (c *Container) initRuleRepository() (policyUseCase.RuleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rule repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return policyRepository.NewMySQLRuleRepository(db), nil
	case "postgres":
		return policyRepository.NewPostgreSQLRuleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initQuotaLedger creates the quota ledger with all its dependencies.
func (c *Container) initQuotaLedger() (ledgerUseCase.QuotaLedger, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for quota ledger: %w", err)
	}

	quotaRepo, err := c.QuotaRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota repository for quota ledger: %w", err)
	}

	return ledgerUseCase.NewQuotaLedger(txManager, quotaRepo), nil
}

// initGrantReader creates the permission grant reader.
func (c *Container) initGrantReader() (ledgerUseCase.GrantReader, error) {
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for grant reader: %w", err)
	}

	return ledgerUseCase.NewGrantReader(grantRepo), nil
}

// initValidator creates the policy validator with all its dependencies.
func (c *Container) initValidator() (policyUseCase.Validator, error) {
	grantReader, err := c.GrantReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant reader for validator: %w", err)
	}

	quotaLedger, err := c.QuotaLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to get quota ledger for validator: %w", err)
	}

	ruleRepo, err := c.RuleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule repository for validator: %w", err)
	}

	return policyUseCase.NewValidator(grantReader, quotaLedger, ruleRepo), nil
}
