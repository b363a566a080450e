// pkg/store/loaders.go
package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

type partnerRow struct {
	ID                int    `db:"id"`
	Name              string `db:"name"`
	Code              string `db:"code"`
	UsesHouseShipping bool   `db:"use_our_shipping_account"`
	InboundFolder     string `db:"ftp_folder_name"`
	POHeaderName      string `db:"po_header_name"`
	AllHeaderNames    string `db:"all_header_names"`
}

// LoadPartnerConfig returns every partner with an order file format and a
// purchase-order-number column configured. The header template comes back
// as the raw per-partner header names in declared order; the caller
// canonicalizes them through alias resolution.
func (s *Store) LoadPartnerConfig(ctx context.Context) ([]model.Partner, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var rows []partnerRow
	err := s.db.SelectContext(qctx, &rows, `
		SELECT
			d.id,
			d.name,
			d.code,
			d.use_our_shipping_account,
			d.ftp_folder_name,
			po_ffd.header_name AS po_header_name,
			string_agg(ffd.header_name, ', ' ORDER BY ffd.header_order) AS all_header_names
		FROM dropshippers d
		JOIN dropshipper_file_formats dff ON dff.dropshipper_id = d.id
		JOIN file_formats ff ON ff.id = dff.format_id
		JOIN file_format_details ffd ON ffd.format_id = ff.id
		JOIN file_format_details po_ffd ON po_ffd.id = d.po_header_format_detail_id
		WHERE ff.type = 'order'
		GROUP BY d.id, d.name, d.code, d.use_our_shipping_account, d.ftp_folder_name, po_ffd.header_name
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner configuration: %w", err)
	}

	partners := make([]model.Partner, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, model.Partner{
			ID:                row.ID,
			Name:              row.Name,
			Code:              row.Code,
			UsesHouseShipping: row.UsesHouseShipping,
			InboundFolder:     row.InboundFolder,
			HeaderTemplate:    splitHeaderList(row.AllHeaderNames),
			PONumberColumn:    row.POHeaderName,
		})
	}

	s.logger.Info("Loaded partner configuration", zap.Int("partners", len(partners)))
	return partners, nil
}

// LoadHeaderAliasMap returns the canonical-name to variant-names mapping.
// Variants keep their stored order so first-variant-wins resolution is
// stable across runs.
func (s *Store) LoadHeaderAliasMap(ctx context.Context) (model.HeaderAliasMap, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var rows []struct {
		Canonical string `db:"normalized_name"`
		Variant   string `db:"header_name"`
	}
	err := s.db.SelectContext(qctx, &rows, `
		SELECT hm.normalized_name, ffd.header_name
		FROM file_format_details ffd
		JOIN header_mappings hm ON ffd.header_mapping_id = hm.id
		ORDER BY hm.normalized_name, ffd.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load header alias map: %w", err)
	}

	aliases := make(model.HeaderAliasMap)
	for _, row := range rows {
		aliases[row.Canonical] = append(aliases[row.Canonical], row.Variant)
	}

	s.logger.Info("Loaded header alias map", zap.Int("canonicalNames", len(aliases)))
	return aliases, nil
}

// LoadCountryStateIndex returns the country reference data with each
// country's state-name to state-code table.
func (s *Store) LoadCountryStateIndex(ctx context.Context) (model.CountryStateIndex, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var rows []struct {
		CountryName string `db:"country_name"`
		TwoLetter   string `db:"two_letter_code"`
		ThreeLetter string `db:"three_letter_code"`
		StateName   string `db:"state_name"`
		StateCode   string `db:"state_code"`
	}
	err := s.db.SelectContext(qctx, &rows, `
		SELECT
			c.name AS country_name,
			c.two_letter_code,
			c.three_letter_code,
			st.name AS state_name,
			st.code AS state_code
		FROM countries c
		JOIN states st ON st.country_id = c.id
		ORDER BY c.name, st.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load country and state reference data: %w", err)
	}

	index := make(model.CountryStateIndex)
	for _, row := range rows {
		key := model.CountryKey{
			Name:        row.CountryName,
			TwoLetter:   row.TwoLetter,
			ThreeLetter: row.ThreeLetter,
		}
		states, ok := index[key]
		if !ok {
			states = make(map[string]string)
			index[key] = states
		}
		states[row.StateName] = row.StateCode
	}

	s.logger.Info("Loaded country and state reference data", zap.Int("countries", len(index)))
	return index, nil
}

// LoadExcludedShippingStates returns the state codes orders cannot be
// shipped to on the house shipping account.
func (s *Store) LoadExcludedShippingStates(ctx context.Context) (map[string]struct{}, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var codes []string
	err := s.db.SelectContext(qctx, &codes, `
		SELECT st.code
		FROM excluded_shipping_states ess
		JOIN states st ON st.id = ess.state_id
		ORDER BY st.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to load excluded shipping states: %w", err)
	}

	excluded := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		excluded[code] = struct{}{}
	}

	s.logger.Info("Loaded excluded shipping states", zap.Int("states", len(excluded)))
	return excluded, nil
}

// LoadInternationalAccountMap maps a standard dropshipper id to its
// international-account counterpart, matched on shared partner code.
func (s *Store) LoadInternationalAccountMap(ctx context.Context) (map[int]int, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var rows []struct {
		StandardID      int `db:"standard_id"`
		InternationalID int `db:"international_id"`
	}
	err := s.db.SelectContext(qctx, &rows, `
		SELECT base.id AS standard_id, intl.id AS international_id
		FROM dropshippers intl
		JOIN dropshippers base ON base.code = intl.code AND base.id <> intl.id
		WHERE intl.name ILIKE '%international%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to load international account map: %w", err)
	}

	accounts := make(map[int]int, len(rows))
	for _, row := range rows {
		accounts[row.StandardID] = row.InternationalID
	}

	s.logger.Info("Loaded international account map", zap.Int("accounts", len(accounts)))
	return accounts, nil
}

func splitHeaderList(list string) []string {
	parts := strings.Split(list, ",")
	headers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			headers = append(headers, trimmed)
		}
	}
	return headers
}
