// pkg/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/config"
	"github.com/dropstream-io/order-ingress/pkg/model"
	"github.com/dropstream-io/order-ingress/pkg/store"
)

type fakeStore struct {
	mu sync.Mutex

	partners      []model.Partner
	aliases       model.HeaderAliasMap
	countries     model.CountryStateIndex
	excluded      map[string]struct{}
	international map[int]int

	ingestedFiles   map[string][]string
	persistedOrders map[string]*model.PurchaseOrder
}

func (s *fakeStore) LoadPartnerConfig(ctx context.Context) ([]model.Partner, error) {
	return s.partners, nil
}

func (s *fakeStore) LoadHeaderAliasMap(ctx context.Context) (model.HeaderAliasMap, error) {
	return s.aliases, nil
}

func (s *fakeStore) LoadCountryStateIndex(ctx context.Context) (model.CountryStateIndex, error) {
	return s.countries, nil
}

func (s *fakeStore) LoadExcludedShippingStates(ctx context.Context) (map[string]struct{}, error) {
	return s.excluded, nil
}

func (s *fakeStore) LoadInternationalAccountMap(ctx context.Context) (map[int]int, error) {
	return s.international, nil
}

func (s *fakeStore) IsFileAlreadyIngested(ctx context.Context, fileName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ingestedFiles[fileName]
	return ok, nil
}

func (s *fakeStore) RecordIngestedFile(ctx context.Context, partnerID int, fileName string, orderNumbers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingestedFiles[fileName] = orderNumbers
	return nil
}

func (s *fakeStore) PersistOrders(ctx context.Context, orders map[string]*model.PurchaseOrder) (*store.PersistReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &store.PersistReport{}
	numbers := make([]string, 0, len(orders))
	for number := range orders {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	for _, number := range numbers {
		s.persistedOrders[number] = orders[number]
		report.Persisted = append(report.Persisted, number)
	}
	return report, nil
}

type archivedFile struct {
	folder, name, category string
}

type fakeSource struct {
	mu sync.Mutex

	// fixtures maps a partner folder to the local fixture files served
	// for it.
	fixtures map[string][]string
	archived []archivedFile
}

func (s *fakeSource) FetchToLocal(folder, localRoot string) (string, []string, error) {
	paths := s.fixtures[folder]
	if len(paths) == 0 {
		return "", nil, nil
	}

	localDir := filepath.Join(localRoot, folder)
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", nil, err
	}

	var local []string
	for _, src := range paths {
		dst := filepath.Join(localDir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return "", nil, err
		}
		local = append(local, dst)
	}
	return localDir, local, nil
}

func (s *fakeSource) Archive(folder, fileName, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived = append(s.archived, archivedFile{folder: folder, name: fileName, category: category})
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *fakeNotifier) Notify(subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func testPartner() model.Partner {
	return model.Partner{
		ID:                7,
		Name:              "Acme Goods",
		Code:              "ACME",
		UsesHouseShipping: false,
		InboundFolder:     "acme",
		PONumberColumn:    "PO Number",
		HeaderTemplate: []string{
			"PO Number", "Order Date", "First Name", "Last Name",
			"Address 1", "Address 2", "City", "State", "Zip", "Country",
			"Phone", "SKU", "Quantity",
		},
	}
}

func testAliases() model.HeaderAliasMap {
	return model.HeaderAliasMap{
		"purchase_order_number": {"PONumber"},
		"purchase_order_date":   {"OrderDate"},
		"customer_first_name":   {"FirstName"},
		"customer_last_name":    {"LastName"},
		"address_1":             {"Address1"},
		"address_2":             {"Address2"},
		"city":                  {"City"},
		"state":                 {"State"},
		"zip":                   {"Zip"},
		"country":               {"Country"},
		"phone":                 {"Phone"},
		"sku":                   {"SKU"},
		"quantity":              {"Quantity"},
	}
}

func testCountries() model.CountryStateIndex {
	return model.CountryStateIndex{
		{Name: "United States", TwoLetter: "US", ThreeLetter: "USA"}: {
			"Illinois":   "IL",
			"California": "CA",
		},
	}
}

const orderFileContent = `PO Number,Order Date,First Name,Last Name,Address 1,Address 2,City,State,Zip,Country,Phone,SKU,Quantity
PO-1,2026-08-01 00:00:00,Jane,Doe,12 Main St,,Springfield,IL,62704,US,555-123-4567,ABC-1,2
PO-1,2026-08-01 00:00:00,Jane,Doe,12 Main St,,Springfield,IL,62704,US,555-123-4567,XYZ-2,1
PO-2,2026-08-01 00:00:00,John,Roe,9 Ocean Ave,,Fresno,CA,93650,US,,DEF-3,4
`

func newTestPipeline(t *testing.T, st *fakeStore, source *fakeSource, notifier *fakeNotifier) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		WorkerPoolSize:   2,
		LocalDownloadDir: t.TempDir(),
	}
	return New(st, source, notifier, cfg, zap.NewNop())
}

func TestRun_EndToEnd(t *testing.T) {
	fixtureDir := t.TempDir()
	fixture := filepath.Join(fixtureDir, "orders.csv")
	require.NoError(t, os.WriteFile(fixture, []byte(orderFileContent), 0o644))

	st := &fakeStore{
		partners:        []model.Partner{testPartner()},
		aliases:         testAliases(),
		countries:       testCountries(),
		excluded:        map[string]struct{}{"CA": {}},
		international:   map[int]int{},
		ingestedFiles:   make(map[string][]string),
		persistedOrders: make(map[string]*model.PurchaseOrder),
	}
	source := &fakeSource{fixtures: map[string][]string{"acme": {fixture}}}
	notifier := &fakeNotifier{}

	summary, err := newTestPipeline(t, st, source, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Partners)
	assert.Equal(t, 1, summary.FilesFetched)
	assert.Equal(t, 1, summary.FilesValid)
	assert.Equal(t, 0, summary.FilesInvalid)
	assert.Equal(t, 2, summary.Orders)
	assert.Equal(t, 1, summary.OrdersUnableToShip)
	assert.Equal(t, 1, summary.OrdersPersisted)

	// The file's order numbers were recorded before persistence.
	assert.Equal(t, []string{"PO-1", "PO-2"}, st.ingestedFiles["orders.csv"])

	// PO-2 is destined for an excluded state; only PO-1 persists.
	require.Contains(t, st.persistedOrders, "PO-1")
	assert.NotContains(t, st.persistedOrders, "PO-2")

	po1 := st.persistedOrders["PO-1"]
	assert.Equal(t, map[string]int{"ABC-1": 2, "XYZ-2": 1}, po1.Items)
	assert.Equal(t, "Jane", po1.CustomerFirstName)
	assert.Equal(t, "US", po1.Country)
	assert.Equal(t, "IL", po1.State)
	assert.Equal(t, int64(5551234567), po1.Phone)

	// The processed file was archived under order logs.
	require.Len(t, source.archived, 1)
	assert.Equal(t, archivedFile{folder: "acme", name: "orders.csv", category: "order_logs"}, source.archived[0])

	assert.Contains(t, notifier.subjects, "Orders Unable to Ship")
}

func TestRun_EmptyInboundFolderIsSkipped(t *testing.T) {
	st := &fakeStore{
		partners:        []model.Partner{testPartner()},
		aliases:         testAliases(),
		countries:       testCountries(),
		excluded:        map[string]struct{}{},
		international:   map[int]int{},
		ingestedFiles:   make(map[string][]string),
		persistedOrders: make(map[string]*model.PurchaseOrder),
	}
	source := &fakeSource{fixtures: map[string][]string{}}
	notifier := &fakeNotifier{}

	summary, err := newTestPipeline(t, st, source, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.FilesFetched)
	assert.Equal(t, 0, summary.Orders)
	assert.Empty(t, st.persistedOrders)
	assert.Empty(t, source.archived)
	assert.Empty(t, notifier.subjects)
}

func TestRun_InvalidFileIsArchivedToErrorLogs(t *testing.T) {
	fixtureDir := t.TempDir()
	fixture := filepath.Join(fixtureDir, "orders.txt")
	require.NoError(t, os.WriteFile(fixture, []byte(orderFileContent), 0o644))

	st := &fakeStore{
		partners:        []model.Partner{testPartner()},
		aliases:         testAliases(),
		countries:       testCountries(),
		excluded:        map[string]struct{}{},
		international:   map[int]int{},
		ingestedFiles:   make(map[string][]string),
		persistedOrders: make(map[string]*model.PurchaseOrder),
	}
	source := &fakeSource{fixtures: map[string][]string{"acme": {fixture}}}
	notifier := &fakeNotifier{}

	summary, err := newTestPipeline(t, st, source, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesInvalid)
	assert.Equal(t, 0, summary.Orders)
	assert.Empty(t, st.persistedOrders)

	require.Len(t, source.archived, 1)
	assert.Equal(t, archivedFile{folder: "acme", name: "orders.txt", category: "error_logs"}, source.archived[0])

	assert.Contains(t, notifier.subjects, "Order Ingestion Problems")
}

func TestRun_InternationalAccountSubstitution(t *testing.T) {
	fixtureDir := t.TempDir()
	fixture := filepath.Join(fixtureDir, "orders.csv")
	require.NoError(t, os.WriteFile(fixture, []byte(orderFileContent), 0o644))

	st := &fakeStore{
		partners:        []model.Partner{testPartner()},
		aliases:         testAliases(),
		countries:       testCountries(),
		excluded:        map[string]struct{}{"CA": {}},
		international:   map[int]int{7: 70},
		ingestedFiles:   make(map[string][]string),
		persistedOrders: make(map[string]*model.PurchaseOrder),
	}
	source := &fakeSource{fixtures: map[string][]string{"acme": {fixture}}}
	notifier := &fakeNotifier{}

	summary, err := newTestPipeline(t, st, source, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.OrdersUnableToShip)
	assert.Equal(t, 2, summary.OrdersPersisted)

	// The excluded-state order ships on the substitute account.
	require.Contains(t, st.persistedOrders, "PO-2")
	assert.Equal(t, 70, st.persistedOrders["PO-2"].DropshipperID)
	assert.Equal(t, 7, st.persistedOrders["PO-1"].DropshipperID)

	assert.NotContains(t, notifier.subjects, "Orders Unable to Ship")
}
