package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                  string // connection string or file path of the store
	SourceDB            string // connection string of the source store (populate)
	WaitForServices     string // duration to wait for other services to be ready
	LogLevel            string // sets the log level (zap log level values)
	SQLLogLevel         string // sets the log level for sql subsystem
	LogFormat           string // text vs json
	LogFilter           string // zapfilter rules, e.g. "*:* debug:sql"
	Backups             bool   // create a backup before migrating the schema
	BackupDir           string // directory for backups (default: next to the store)
	BusyInterval        string // pause between statement retries on a locked database
	BusyBudget          string // accumulated wait until a busy statement gives up
	MigrationRetries    int    // number of attempts for the migration chain
	MigrationRetryPause string // pause between migration attempts
	FreshCreate         bool   // create empty stores directly at the latest version
)
