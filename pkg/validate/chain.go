// pkg/validate/chain.go

// Package validate runs file-level validation rules in a fixed order with
// short-circuit on the first failure.
package validate

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// CSVExtension is the accepted delimited-text extension.
const CSVExtension = ".csv"

// Chain evaluates files against an ordered rule sequence. The order is
// fixed: non-empty, extension, template conformance, not-a-duplicate,
// required content.
type Chain struct {
	rules  []Rule
	logger *zap.Logger
}

// NewChain builds the rule chain for one partner's expected header
// template.
func NewChain(store DuplicateChecker, aliases model.HeaderAliasMap, template []string, logger *zap.Logger) *Chain {
	return &Chain{
		rules: []Rule{
			notEmpty{},
			hasExtension{ext: CSVExtension},
			followsTemplate{template: template, aliases: aliases},
			notDuplicate{store: store},
			hasRequiredContent{aliases: aliases},
		},
		logger: logger.Named("validate"),
	}
}

// ValidateFile runs the chain against one file, stopping at the first
// failing rule.
func (c *Chain) ValidateFile(ctx context.Context, path string) model.ValidationOutcome {
	for _, rule := range c.rules {
		outcome := rule.Evaluate(ctx, path)
		if !outcome.Valid {
			c.logger.Info("File rejected",
				zap.String("file", path),
				zap.String("rule", rule.Name()),
				zap.String("reason", outcome.Reason))
			return outcome
		}
	}
	return model.Pass()
}

// ValidateDir walks a downloaded folder and partitions its files into
// valid paths and (path, reason) failures. A failing file never aborts the
// walk; the chain records it and moves on.
func (c *Chain) ValidateDir(ctx context.Context, dir string) ([]string, []model.FileFailure, error) {
	var valid []string
	var invalid []model.FileFailure

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		outcome := c.ValidateFile(ctx, path)
		if outcome.Valid {
			valid = append(valid, path)
		} else {
			invalid = append(invalid, model.FileFailure{Path: path, Reason: outcome.Reason})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return valid, invalid, nil
}
