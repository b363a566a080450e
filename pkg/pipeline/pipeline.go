// pkg/pipeline/pipeline.go

// Package pipeline coordinates an ingestion run: fetch each partner's
// inbound files, validate, normalize and aggregate them, filter for
// shipping eligibility, persist the surviving orders and archive the
// source files.
package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/aggregate"
	"github.com/dropstream-io/order-ingress/pkg/config"
	"github.com/dropstream-io/order-ingress/pkg/model"
	"github.com/dropstream-io/order-ingress/pkg/notify"
	"github.com/dropstream-io/order-ingress/pkg/remote"
	"github.com/dropstream-io/order-ingress/pkg/shipping"
	"github.com/dropstream-io/order-ingress/pkg/store"
	"github.com/dropstream-io/order-ingress/pkg/transform"
)

// Store is the relational collaborator contract the pipeline needs.
type Store interface {
	LoadPartnerConfig(ctx context.Context) ([]model.Partner, error)
	LoadHeaderAliasMap(ctx context.Context) (model.HeaderAliasMap, error)
	LoadCountryStateIndex(ctx context.Context) (model.CountryStateIndex, error)
	LoadExcludedShippingStates(ctx context.Context) (map[string]struct{}, error)
	LoadInternationalAccountMap(ctx context.Context) (map[int]int, error)

	IsFileAlreadyIngested(ctx context.Context, fileName string) (bool, error)
	RecordIngestedFile(ctx context.Context, partnerID int, fileName string, orderNumbers []string) error
	PersistOrders(ctx context.Context, orders map[string]*model.PurchaseOrder) (*store.PersistReport, error)
}

// FileSource is the remote file collaborator contract.
type FileSource interface {
	FetchToLocal(folder, localRoot string) (string, []string, error)
	Archive(folder, fileName, category string) error
}

// Pipeline wires the collaborators together for one or more runs.
type Pipeline struct {
	store    Store
	source   FileSource
	notifier notify.Notifier
	cfg      *config.Config
	logger   *zap.Logger
}

// New creates a Pipeline.
func New(st Store, source FileSource, notifier notify.Notifier, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    st,
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("pipeline"),
	}
}

// Summary reports what one run did.
type Summary struct {
	RunID string

	Partners     int
	FilesFetched int
	FilesValid   int
	FilesInvalid int

	Orders             int
	OrdersRemovedEmpty int
	OrdersUnableToShip int
	OrdersPersisted    int
	OrdersSkipped      int
	OrdersFailed       int

	UnparsedRowKeys int
}

// Run executes one full ingestion pass over every configured partner.
// Per-partner work runs on a bounded worker pool; one partner's failure
// never aborts the others.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.New().String()}
	logger := p.logger.With(zap.String("runID", summary.RunID))
	logger.Info("Starting ingestion run")

	partners, err := p.store.LoadPartnerConfig(ctx)
	if err != nil {
		return summary, err
	}
	aliases, err := p.store.LoadHeaderAliasMap(ctx)
	if err != nil {
		return summary, err
	}
	countries, err := p.store.LoadCountryStateIndex(ctx)
	if err != nil {
		return summary, err
	}
	excludedStates, err := p.store.LoadExcludedShippingStates(ctx)
	if err != nil {
		return summary, err
	}
	internationalAccounts, err := p.store.LoadInternationalAccountMap(ctx)
	if err != nil {
		return summary, err
	}

	summary.Partners = len(partners)
	transformer := transform.New(countries, logger)
	aggregator := aggregate.New(partners, logger)

	results := p.runPartnerPool(ctx, partners, aliases, transformer, aggregator, logger)

	// Merge the per-partner partial results into one batch view.
	merged := aggregate.NewResult()
	invalidFiles := make(model.FileErrorBucket)
	var files []processedFile
	var rejected []rejectedFile
	var localDirs []string

	for _, res := range results {
		if res.localDir != "" {
			localDirs = append(localDirs, res.localDir)
		}
		if res.err != nil {
			logger.Error("Partner processing failed",
				zap.String("partner", res.partner.Name),
				zap.Error(res.err))
			continue
		}
		summary.FilesFetched += res.filesFetched
		if res.result != nil {
			merged.Merge(res.result)
		}
		for _, failure := range res.invalid {
			invalidFiles[res.partner.Name] = append(invalidFiles[res.partner.Name], failure)
			rejected = append(rejected, rejectedFile{
				folder: res.partner.InboundFolder,
				name:   filepath.Base(failure.Path),
			})
		}
		files = append(files, res.files...)
	}

	summary.FilesValid = len(files)
	for _, failures := range invalidFiles {
		summary.FilesInvalid += len(failures)
	}

	summary.OrdersRemovedEmpty = transform.CleanSKUCatalog(merged.Orders)
	summary.Orders = len(merged.Orders)
	summary.UnparsedRowKeys = len(merged.Unparsed)

	if len(invalidFiles) > 0 || len(merged.Unparsed) > 0 {
		p.notifier.Notify("Order Ingestion Problems", buildProblemReport(invalidFiles, merged.Unparsed))
	}

	if len(merged.Orders) == 0 {
		logger.Info("No orders to persist; archiving processed files")
		p.archiveFiles(files, nil, rejected)
		p.cleanupLocal(localDirs)
		logger.Info("Ingestion run complete", zap.Int("orders", 0))
		return summary, nil
	}

	unableToShip, shippable := shipping.Partition(
		merged.Orders, excludedStates, internationalAccounts, logger)
	summary.OrdersUnableToShip = len(unableToShip)
	if len(unableToShip) > 0 {
		p.notifier.Notify("Orders Unable to Ship", buildUnableToShipReport(unableToShip))
	}

	report, err := p.store.PersistOrders(ctx, shippable)
	if err != nil {
		return summary, err
	}
	summary.OrdersPersisted = len(report.Persisted)
	summary.OrdersSkipped = len(report.Skipped)
	summary.OrdersFailed = len(report.Failed)

	if report.HasFailures() {
		p.notifier.Notify("Error Storing Orders", buildPersistFailureReport(report))
	}

	p.archiveFiles(files, report, rejected)
	p.cleanupLocal(localDirs)

	logger.Info("Ingestion run complete",
		zap.Int("filesValid", summary.FilesValid),
		zap.Int("filesInvalid", summary.FilesInvalid),
		zap.Int("orders", summary.Orders),
		zap.Int("persisted", summary.OrdersPersisted),
		zap.Int("unableToShip", summary.OrdersUnableToShip))

	return summary, nil
}

// runPartnerPool fans the partner list out over a bounded worker pool and
// collects every partner's partial result.
func (p *Pipeline) runPartnerPool(
	ctx context.Context,
	partners []model.Partner,
	aliases model.HeaderAliasMap,
	transformer *transform.Transformer,
	aggregator *aggregate.Aggregator,
	logger *zap.Logger,
) []*partnerResult {
	poolSize := p.cfg.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	if poolSize > len(partners) {
		poolSize = len(partners)
	}

	jobs := make(chan model.Partner, len(partners))
	results := make(chan *partnerResult, len(partners))

	var wg sync.WaitGroup
	for i := 0; i < poolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With(zap.Int("workerID", workerID))
			for {
				select {
				case <-ctx.Done():
					return
				case partner, ok := <-jobs:
					if !ok {
						return
					}
					results <- p.processPartner(ctx, partner, aliases, transformer, aggregator, workerLogger)
				}
			}
		}(i)
	}

	for _, partner := range partners {
		jobs <- partner
	}
	close(jobs)
	wg.Wait()
	close(results)

	collected := make([]*partnerResult, 0, len(partners))
	for res := range results {
		collected = append(collected, res)
	}
	return collected
}

// archiveFiles moves every processed file out of its partner's inbound
// folder. A valid file whose orders all failed to persist is left in
// place so a later run can retry it.
func (p *Pipeline) archiveFiles(files []processedFile, report *store.PersistReport, rejected []rejectedFile) {
	failed := make(map[string]struct{})
	if report != nil {
		for _, f := range report.Failed {
			failed[f.PurchaseOrderNumber] = struct{}{}
		}
	}

	for _, file := range files {
		if anyOrderFailed(file.orderNumbers, failed) {
			p.logger.Warn("Leaving file in place; some of its orders failed to persist",
				zap.String("file", file.name),
				zap.String("folder", file.folder))
			continue
		}
		if err := p.source.Archive(file.folder, file.name, remote.CategoryOrderLogs); err != nil {
			p.logger.Error("Failed to archive processed file",
				zap.String("file", file.name),
				zap.Error(err))
		}
	}

	for _, file := range rejected {
		if err := p.source.Archive(file.folder, file.name, remote.CategoryErrorLogs); err != nil {
			p.logger.Error("Failed to archive rejected file",
				zap.String("file", file.name),
				zap.Error(err))
		}
	}
}

func anyOrderFailed(orderNumbers []string, failed map[string]struct{}) bool {
	for _, number := range orderNumbers {
		if _, ok := failed[number]; ok {
			return true
		}
	}
	return false
}
