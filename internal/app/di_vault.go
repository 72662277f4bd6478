package app

import (
	"context"
	"fmt"

	vaultHTTP "github.com/allisson/provision/internal/vault/http"
	vaultService "github.com/allisson/provision/internal/vault/service"
	vaultUseCase "github.com/allisson/provision/internal/vault/usecase"
)

// TokenGenerator returns the vault token generator.
func (c *Container) TokenGenerator() (vaultService.TokenGenerator, error) {
	var err error
	c.tokenGeneratorInit.Do(func() {
		c.tokenGenerator, err = vaultService.NewTokenGenerator()
		if err != nil {
			c.initErrors["tokenGenerator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenGenerator"]; exists {
		return nil, storedErr
	}
	return c.tokenGenerator, nil
}

// ArtifactStore returns the export artifact blob store.
func (c *Container) ArtifactStore() (vaultService.ArtifactStore, error) {
	var err error
	c.artifactStoreInit.Do(func() {
		c.artifactStore, err = c.initArtifactStore()
		if err != nil {
			c.initErrors["artifactStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["artifactStore"]; exists {
		return nil, storedErr
	}
	return c.artifactStore, nil
}

// VaultUseCase returns the ephemeral vault use case.
func (c *Container) VaultUseCase() (vaultUseCase.Vault, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// ExportHandler returns the HTTP handler for export redemption.
func (c *Container) ExportHandler() (*vaultHTTP.ExportHandler, error) {
	var err error
	c.exportHandlerInit.Do(func() {
		c.exportHandler, err = c.initExportHandler()
		if err != nil {
			c.initErrors["exportHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["exportHandler"]; exists {
		return nil, storedErr
	}
	return c.exportHandler, nil
}

// initArtifactStore creates the export artifact store on the local filesystem.
func (c *Container) initArtifactStore() (vaultService.ArtifactStore, error) {
	bucketURL := fmt.Sprintf("file://%s?create_dir=1", c.config.VaultArtifactDir)

	store, err := vaultService.NewBlobArtifactStore(context.Background(), bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	return store, nil
}

// initVaultUseCase creates the vault use case with all its dependencies.
func (c *Container) initVaultUseCase() (vaultUseCase.Vault, error) {
	tokenGenerator, err := c.TokenGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to get token generator for vault use case: %w", err)
	}

	artifactStore, err := c.ArtifactStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact store for vault use case: %w", err)
	}

	return vaultUseCase.NewVault(
		tokenGenerator,
		artifactStore,
		c.config.VaultDefaultTTL,
		c.Logger(),
	), nil
}

// initExportHandler creates the export HTTP handler.
func (c *Container) initExportHandler() (*vaultHTTP.ExportHandler, error) {
	vault, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for export handler: %w", err)
	}

	return vaultHTTP.NewExportHandler(vault, c.Logger()), nil
}
