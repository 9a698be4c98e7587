package sink

import (
	"time"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/record"
	"github.com/neo/personasim/internal/types"
)

// Options selects and configures the sinks of a run
type Options struct {
	Kind         types.SinkKind
	REST         RESTConfig
	DatabasePath string
	OutputDir    string
	// Prefix names the primary CSV file when Kind is csv.
	Prefix string
	// Legacy writes CSV headers with the remote table's column names.
	Legacy  bool
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (o Options) columns() []string {
	if o.Legacy {
		return record.LegacyColumns
	}
	return record.Columns
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// backup is a lazily created CSV file used only after a failure.
func (o Options) backup() Sink {
	return NewLazy("backup_csv", func() (Sink, error) {
		path := TimestampedPath(o.OutputDir, BackupPrefix, o.now())
		logging.Warn("Falling back to CSV file", map[string]interface{}{"path": path})
		return NewCSVSink(path, o.columns())
	})
}

// Build assembles the chain for opts.Kind:
//
//	auto   -> rest when credentials exist, else sqlite; then backup CSV
//	rest   -> rest, backup CSV (credentials required)
//	sqlite -> sqlite, backup CSV
//	csv    -> a single CSV file
func Build(opts Options) (*Chain, error) {
	kind := opts.Kind
	if kind == "" {
		kind = types.SinkAuto
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = ResultsPrefix
	}

	switch kind {
	case types.SinkCSV:
		csvSink, err := NewCSVSink(TimestampedPath(opts.OutputDir, prefix, opts.now()), opts.columns())
		if err != nil {
			return nil, err
		}
		return NewChain(opts.Metrics, csvSink)

	case types.SinkREST:
		rest, err := NewRESTSink(opts.REST)
		if err != nil {
			return nil, err
		}
		return NewChain(opts.Metrics, rest, opts.backup())

	case types.SinkSQLite:
		db, err := OpenSQLiteSink(opts.DatabasePath)
		if err != nil {
			return nil, err
		}
		return NewChain(opts.Metrics, db, opts.backup())

	default:
		if rest, err := NewRESTSink(opts.REST); err == nil {
			return NewChain(opts.Metrics, rest, opts.backup())
		}
		db, err := OpenSQLiteSink(opts.DatabasePath)
		if err != nil {
			logging.Warn("Local datastore unavailable, writing CSV only", map[string]interface{}{
				"path":  opts.DatabasePath,
				"error": err.Error(),
			})
			return NewChain(opts.Metrics, opts.backup())
		}
		return NewChain(opts.Metrics, db, opts.backup())
	}
}
