// Package prompts implements the append-only, versioned per-agent prompt
// store: read-latest, read-specific-version, append-new-version, and
// default prompt seeding for the known agent roster.
package prompts

import (
	"context"
	"fmt"
	"time"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/promptversion"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/google/uuid"
)

// Info is the metadata view of a prompt version, without its content.
type Info struct {
	Version    string
	CreatedAt  time.Time
	ModifiedBy string
}

// Store is the ent-backed versioned prompt store.
type Store struct {
	client *ent.Client
}

// NewStore builds a Store.
func NewStore(client *ent.Client) *Store {
	return &Store{client: client}
}

// Get returns the content of the requested version, or the active version
// if version is empty. Seeds the default roster for agentName on first use.
func (s *Store) Get(ctx context.Context, agentName, version string) (string, error) {
	row, err := s.resolve(ctx, agentName, version)
	if err != nil {
		return "", err
	}
	return row.Content, nil
}

// GetInfo returns the metadata of the requested (or active) version.
func (s *Store) GetInfo(ctx context.Context, agentName, version string) (*Info, error) {
	row, err := s.resolve(ctx, agentName, version)
	if err != nil {
		return nil, err
	}
	return &Info{Version: row.Version, CreatedAt: row.CreatedAt, ModifiedBy: row.ModifiedBy}, nil
}

// Update appends a new version derived from the current active version and
// returns the version string assigned to it.
func (s *Store) Update(ctx context.Context, agentName, content, modifiedBy string) (string, error) {
	if err := s.ensureSeeded(ctx, agentName); err != nil {
		return "", err
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin prompt update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	active, err := tx.PromptVersion.Query().
		Where(promptversion.AgentNameEQ(agentName), promptversion.IsActiveEQ(true)).
		Only(ctx)
	currentVersion := ""
	if err == nil {
		currentVersion = active.Version
	} else if !ent.IsNotFound(err) {
		return "", fmt.Errorf("query active prompt version for %s: %w", agentName, err)
	}

	nextVersion, err := bumpVersion(currentVersion)
	if err != nil {
		return "", caseerrors.InvalidInputf("%v", err)
	}

	if active != nil {
		if _, err := active.Update().SetIsActive(false).Save(ctx); err != nil {
			return "", fmt.Errorf("deactivate prompt version %s/%s: %w", agentName, currentVersion, err)
		}
	}

	_, err = tx.PromptVersion.Create().
		SetID(uuid.New().String()).
		SetAgentName(agentName).
		SetVersion(nextVersion).
		SetContent(content).
		SetModifiedBy(modifiedBy).
		SetIsActive(true).
		Save(ctx)
	if err != nil {
		return "", fmt.Errorf("create prompt version %s/%s: %w", agentName, nextVersion, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit prompt update for %s: %w", agentName, err)
	}

	return nextVersion, nil
}

// ListVersions returns all version strings for agentName, oldest first.
func (s *Store) ListVersions(ctx context.Context, agentName string) ([]string, error) {
	if err := s.ensureSeeded(ctx, agentName); err != nil {
		return nil, err
	}

	rows, err := s.client.PromptVersion.Query().
		Where(promptversion.AgentNameEQ(agentName)).
		Order(ent.Asc(promptversion.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prompt versions for %s: %w", agentName, err)
	}

	versions := make([]string, len(rows))
	for i, row := range rows {
		versions[i] = row.Version
	}
	return versions, nil
}

func (s *Store) resolve(ctx context.Context, agentName, version string) (*ent.PromptVersion, error) {
	if err := s.ensureSeeded(ctx, agentName); err != nil {
		return nil, err
	}

	query := s.client.PromptVersion.Query().Where(promptversion.AgentNameEQ(agentName))
	if version != "" {
		query = query.Where(promptversion.VersionEQ(version))
	} else {
		query = query.Where(promptversion.IsActiveEQ(true))
	}

	row, err := query.Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, caseerrors.NotFoundf("prompt %s version %q", agentName, version)
		}
		return nil, fmt.Errorf("query prompt %s version %q: %w", agentName, version, err)
	}
	return row, nil
}

// ensureSeeded lazily inserts the default v1.0 prompt for agentName the
// first time it's requested, matching the known-roster seeding rule. A
// constraint violation from a concurrent seeding attempt is not an error.
func (s *Store) ensureSeeded(ctx context.Context, agentName string) error {
	exists, err := s.client.PromptVersion.Query().
		Where(promptversion.AgentNameEQ(agentName)).
		Exist(ctx)
	if err != nil {
		return fmt.Errorf("check existing prompts for %s: %w", agentName, err)
	}
	if exists {
		return nil
	}

	content := ""
	found := false
	for _, seed := range DefaultRoster() {
		if seed.AgentName == agentName {
			content = seed.Content
			found = true
			break
		}
	}
	if !found {
		return caseerrors.NotFoundf("no default prompt for unknown agent %s", agentName)
	}

	err = s.client.PromptVersion.Create().
		SetID(uuid.New().String()).
		SetAgentName(agentName).
		SetVersion(initialVersion).
		SetContent(content).
		SetModifiedBy("system").
		SetIsActive(true).
		Exec(ctx)
	if err != nil && !ent.IsConstraintError(err) {
		return fmt.Errorf("seed default prompt for %s: %w", agentName, err)
	}
	return nil
}
