package normalization

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
	"washtrade-lab/internal/ingestion"
)

// DefaultLottery is used when an export has no lottery column.
const DefaultLottery = "UNKNOWN"

// Stats counts what happened to every input row.
type Stats struct {
	TotalRows               int
	Valid                   int
	DroppedMissingField     int
	DroppedUnknownDirection int
	DroppedBadAmount        int
	DroppedBelowMinimum     int

	Columns          map[Field]string // field -> header used
	DefaultedLottery bool
}

// Dropped is the number of rows excluded.
func (s Stats) Dropped() int {
	return s.DroppedMissingField + s.DroppedUnknownDirection + s.DroppedBadAmount + s.DroppedBelowMinimum
}

// DropReasons breaks Dropped down by reason label.
func (s Stats) DropReasons() map[string]int {
	return map[string]int{
		"missing_field":     s.DroppedMissingField,
		"unknown_direction": s.DroppedUnknownDirection,
		"bad_amount":        s.DroppedBadAmount,
		"below_minimum":     s.DroppedBelowMinimum,
	}
}

// Normalizer turns raw export rows into BetRecords. Everything the detection
// engine rejects as malformed is dropped and counted here instead.
type Normalizer struct {
	columns        map[Field][]string
	matcher        *DirectionMatcher
	minAmount      decimal.Decimal
	defaultLottery string
	logger         zerolog.Logger
}

// Options for creating Normalizer.
type Options struct {
	Model          domain.DirectionModel
	Synonyms       map[domain.Direction][]string // nil uses DefaultDirectionSynonyms
	Columns        map[Field][]string            // nil uses DefaultColumnSynonyms
	MinAmount      decimal.Decimal
	DefaultLottery string
	Logger         *zerolog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts Options) (*Normalizer, error) {
	synonyms := opts.Synonyms
	if synonyms == nil {
		synonyms = DefaultDirectionSynonyms
	}
	matcher, err := NewDirectionMatcher(opts.Model, synonyms)
	if err != nil {
		return nil, err
	}

	columns := opts.Columns
	if columns == nil {
		columns = DefaultColumnSynonyms
	}
	lottery := opts.DefaultLottery
	if lottery == "" {
		lottery = DefaultLottery
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "normalization").Logger()
	}

	return &Normalizer{
		columns:        columns,
		matcher:        matcher,
		minAmount:      opts.MinAmount,
		defaultLottery: lottery,
		logger:         logger,
	}, nil
}

// NewNormalizerFromConfig builds a Normalizer from the loaded configuration.
// Configured synonyms replace the built-in ones per direction.
func NewNormalizerFromConfig(cfg *config.Config, logger *zerolog.Logger) (*Normalizer, error) {
	model, err := cfg.Detection.DirectionModel()
	if err != nil {
		return nil, err
	}
	minAmount, err := cfg.Detection.MinStake()
	if err != nil {
		return nil, err
	}

	for d := range cfg.Normalization.DirectionSynonyms {
		if !model.Known(domain.Direction(d)) {
			return nil, fmt.Errorf("normalization.direction_synonyms: unknown direction %q", d)
		}
	}

	synonyms := make(map[domain.Direction][]string, len(DefaultDirectionSynonyms))
	for d, s := range DefaultDirectionSynonyms {
		synonyms[d] = s
	}
	for d, s := range cfg.Normalization.DirectionSynonyms {
		synonyms[domain.Direction(d)] = s
	}
	// Built-in entries for directions the configured model dropped.
	for d := range synonyms {
		if !model.Known(d) {
			delete(synonyms, d)
		}
	}

	return NewNormalizer(Options{
		Model:          model,
		Synonyms:       synonyms,
		MinAmount:      minAmount,
		DefaultLottery: cfg.Normalization.DefaultLottery,
		Logger:         logger,
	})
}

// Normalize maps header and rows to BetRecords. It fails only when a
// required column is missing; bad rows are dropped and counted.
func (n *Normalizer) Normalize(header []string, rows [][]string) ([]domain.BetRecord, Stats, error) {
	bets, stats, err := n.normalize("", header, rows)
	if err != nil {
		return nil, stats, err
	}
	return domain.Records(bets), stats, nil
}

// NormalizeTable is Normalize with provenance: each record carries its
// source, 1-based row and record id.
func (n *Normalizer) NormalizeTable(t *ingestion.RawTable) ([]*domain.IngestedBet, Stats, error) {
	return n.normalize(t.Source, t.Header, t.Rows)
}

func (n *Normalizer) normalize(source string, header []string, rows [][]string) ([]*domain.IngestedBet, Stats, error) {
	stats := Stats{TotalRows: len(rows)}

	cols, err := ResolveColumns(header, n.columns)
	if err != nil {
		return nil, stats, err
	}
	stats.Columns = make(map[Field]string, len(cols))
	for f, i := range cols {
		stats.Columns[f] = header[i]
	}
	stats.DefaultedLottery = !cols.Has(FieldLottery)

	bets := make([]*domain.IngestedBet, 0, len(rows))
	for i, row := range rows {
		account := cols.Cell(row, FieldAccount)
		round := cols.Cell(row, FieldRound)
		content := cols.Cell(row, FieldContent)
		amountText := cols.Cell(row, FieldAmount)
		if account == "" || round == "" || content == "" || amountText == "" {
			stats.DroppedMissingField++
			continue
		}

		lottery := cols.Cell(row, FieldLottery)
		if lottery == "" {
			lottery = n.defaultLottery
		}

		direction, ok := n.matcher.Match(content)
		if !ok {
			stats.DroppedUnknownDirection++
			n.logger.Debug().Int("row", i+1).Str("content", content).Msg("unknown direction")
			continue
		}

		amount, outcome := ParseAmount(amountText, n.minAmount)
		switch outcome {
		case AmountUnparseable:
			stats.DroppedBadAmount++
			n.logger.Debug().Int("row", i+1).Str("amount", amountText).Msg("unparseable amount")
			continue
		case AmountBelowMinimum:
			stats.DroppedBelowMinimum++
			continue
		}

		bets = append(bets, &domain.IngestedBet{
			RecordID: idhash.ComputeRecordID(source, i+1),
			Source:   source,
			Row:      i + 1,
			BetRecord: domain.BetRecord{
				RoundID:   round,
				LotteryID: lottery,
				AccountID: account,
				Direction: direction,
				Amount:    amount,
			},
		})
	}
	stats.Valid = len(bets)

	n.logger.Info().
		Str("source", source).
		Int("rows", stats.TotalRows).
		Int("valid", stats.Valid).
		Int("dropped", stats.Dropped()).
		Bool("defaulted_lottery", stats.DefaultedLottery).
		Msg("normalized")

	return bets, stats, nil
}
