// pkg/pipeline/partner.go
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/aggregate"
	"github.com/dropstream-io/order-ingress/pkg/alias"
	"github.com/dropstream-io/order-ingress/pkg/model"
	"github.com/dropstream-io/order-ingress/pkg/reader"
	"github.com/dropstream-io/order-ingress/pkg/transform"
	"github.com/dropstream-io/order-ingress/pkg/validate"
)

// processedFile is a valid file that contributed orders to the batch,
// with the order numbers it carried for archive gating.
type processedFile struct {
	folder       string
	name         string
	orderNumbers []string
}

// rejectedFile is an invalid file queued for error-log archiving.
type rejectedFile struct {
	folder string
	name   string
}

// partnerResult is one partner's partial contribution to a run.
type partnerResult struct {
	partner model.Partner

	localDir     string
	filesFetched int
	files        []processedFile
	invalid      []model.FileFailure
	result       *aggregate.Result

	err error
}

// processPartner fetches, validates, normalizes and aggregates one
// partner's inbound files. A partner with no inbound files is skipped. The
// returned result is partial; the coordinator merges it with the other
// partners' results.
func (p *Pipeline) processPartner(
	ctx context.Context,
	partner model.Partner,
	aliases model.HeaderAliasMap,
	transformer *transform.Transformer,
	aggregator *aggregate.Aggregator,
	logger *zap.Logger,
) *partnerResult {
	res := &partnerResult{partner: partner}
	logger = logger.With(zap.String("partner", partner.Name))

	localDir, paths, err := p.source.FetchToLocal(partner.InboundFolder, p.cfg.LocalDownloadDir)
	if err != nil {
		res.err = err
		return res
	}
	if len(paths) == 0 {
		logger.Info("No inbound files; skipping partner")
		return res
	}
	res.localDir = localDir
	res.filesFetched = len(paths)

	chain := validate.NewChain(p.store, aliases, canonicalTemplate(partner, aliases), logger)
	valid, invalid, err := chain.ValidateDir(ctx, localDir)
	if err != nil {
		res.err = err
		return res
	}
	res.invalid = invalid

	res.result = aggregate.NewResult()
	for _, path := range valid {
		file, result, err := p.processFile(ctx, partner, path, aliases, transformer, aggregator, logger)
		if err != nil {
			// The file stays in the inbound folder untouched; a later
			// run picks it up again once the fault is resolved.
			logger.Error("Failed to process file", zap.String("file", path), zap.Error(err))
			p.notifier.Notify("Error Recording File", "Could not record "+filepath.Base(path)+
				" for "+partner.Name+": "+err.Error())
			continue
		}
		res.files = append(res.files, file)
		res.result.Merge(result)
	}

	logger.Info("Partner processed",
		zap.Int("filesFetched", res.filesFetched),
		zap.Int("filesValid", len(res.files)),
		zap.Int("filesInvalid", len(res.invalid)),
		zap.Int("orders", len(res.result.Orders)))

	return res
}

// processFile turns one validated file into aggregated orders. The file's
// order numbers are recorded against it before any row parsing so a rerun
// sees the file as a duplicate even if parsing later fails.
func (p *Pipeline) processFile(
	ctx context.Context,
	partner model.Partner,
	path string,
	aliases model.HeaderAliasMap,
	transformer *transform.Transformer,
	aggregator *aggregate.Aggregator,
	logger *zap.Logger,
) (processedFile, *aggregate.Result, error) {
	table, err := reader.ReadFile(path)
	if err != nil {
		return processedFile{}, nil, err
	}

	// Order numbers are extracted under the partner's own header name,
	// before alias resolution renames the column.
	orderNumbers := uniqueValues(reader.ColumnValues(table, partner.PONumberColumn))

	fileName := filepath.Base(path)
	if err := p.store.RecordIngestedFile(ctx, partner.ID, fileName, orderNumbers); err != nil {
		return processedFile{}, nil, err
	}

	alias.Standardize(table, aliases)
	records, failures := transformer.TransformTable(table, partner.ID)
	result := aggregator.Aggregate(records, failures)

	logger.Info("File processed",
		zap.String("file", fileName),
		zap.Int("rows", len(table.Rows)),
		zap.Int("orders", len(result.Orders)))

	return processedFile{
		folder:       partner.InboundFolder,
		name:         fileName,
		orderNumbers: orderNumbers,
	}, result, nil
}

// canonicalTemplate resolves a partner's stored header template, declared
// in the partner's own header names, to the canonical column sequence the
// validation chain compares against.
func canonicalTemplate(partner model.Partner, aliases model.HeaderAliasMap) []string {
	cleaned := make([]string, len(partner.HeaderTemplate))
	for i, name := range partner.HeaderTemplate {
		cleaned[i] = reader.CleanHeader(name)
	}
	table := alias.Standardize(&model.Table{Columns: cleaned}, aliases)
	return table.Columns
}

func uniqueValues(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}

// cleanupLocal removes the run's temporary download directories.
func (p *Pipeline) cleanupLocal(dirs []string) {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("Failed to remove download directory",
				zap.String("dir", dir),
				zap.Error(err))
		}
	}
}
