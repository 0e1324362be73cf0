// Package bootstrap seeds reference data from a YAML file at startup:
// departments, directory users, and workflows with their rules. Seeding is
// idempotent — existing departments and users are updated in place, and a
// workflow that already exists for a department is left untouched.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/procurio/be-pr-approvals/internal/model"
	"github.com/procurio/be-pr-approvals/internal/repository"
)

// SeedFile is the YAML schema of a seed file. Users and workflows reference
// departments by name.
type SeedFile struct {
	Departments []struct {
		Name string `yaml:"name"`
	} `yaml:"departments"`
	Users []struct {
		Email       string `yaml:"email"`
		Role        string `yaml:"role"`
		Department  string `yaml:"department"`
		IsSuperUser bool   `yaml:"isSuperUser"`
	} `yaml:"users"`
	Workflows []struct {
		Department string `yaml:"department"`
		Name       string `yaml:"name"`
		Rules      []struct {
			Conditions   []model.Condition `yaml:"conditions"`
			Logic        model.Logic       `yaml:"logic"`
			ApproverRole string            `yaml:"approverRole"`
		} `yaml:"rules"`
	} `yaml:"workflows"`
}

// Seed loads the file at path and applies it.
func Seed(ctx context.Context, path string, directory *repository.DirectoryRepository, workflows *repository.WorkflowRepository, log zerolog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	departmentIDs := make(map[string]string, len(seed.Departments))
	for _, d := range seed.Departments {
		dep := &model.Department{Name: d.Name}
		if err := directory.UpsertDepartment(ctx, dep); err != nil {
			return fmt.Errorf("seed department %q: %w", d.Name, err)
		}
		departmentIDs[d.Name] = dep.ID
	}

	for _, u := range seed.Users {
		depID, ok := departmentIDs[u.Department]
		if !ok {
			return fmt.Errorf("seed user %q: unknown department %q", u.Email, u.Department)
		}
		user := &model.User{
			Email:        u.Email,
			RoleID:       u.Role,
			DepartmentID: depID,
			IsSuperUser:  u.IsSuperUser,
		}
		if err := directory.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Email, err)
		}
	}

	for _, w := range seed.Workflows {
		depID, ok := departmentIDs[w.Department]
		if !ok {
			return fmt.Errorf("seed workflow %q: unknown department %q", w.Name, w.Department)
		}

		existing, err := workflows.ListByDepartment(ctx, depID)
		if err != nil {
			return fmt.Errorf("seed workflow %q: %w", w.Name, err)
		}
		if containsWorkflow(existing, w.Name) {
			log.Debug().Str("workflow", w.Name).Str("department", w.Department).
				Msg("Seed workflow already exists; skipping")
			continue
		}

		wf, err := workflows.CreateWorkflow(ctx, depID, w.Name)
		if err != nil {
			return fmt.Errorf("seed workflow %q: %w", w.Name, err)
		}
		for _, r := range w.Rules {
			logic, err := model.ValidateRule(r.Conditions, r.Logic, r.ApproverRole)
			if err != nil {
				return fmt.Errorf("seed workflow %q rule: %w", w.Name, err)
			}
			if _, err := workflows.AddRule(ctx, wf.ID, r.Conditions, logic, r.ApproverRole); err != nil {
				return fmt.Errorf("seed workflow %q rule: %w", w.Name, err)
			}
		}
		log.Info().Str("workflow_id", wf.ID).Str("name", w.Name).
			Int("rules", len(w.Rules)).Msg("Seed workflow created")
	}

	log.Info().
		Int("departments", len(seed.Departments)).
		Int("users", len(seed.Users)).
		Int("workflows", len(seed.Workflows)).
		Msg("Seed data applied")
	return nil
}

func containsWorkflow(workflows []*model.Workflow, name string) bool {
	for _, wf := range workflows {
		if wf.Name == name {
			return true
		}
	}
	return false
}
