package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Statische Konfiguration (YAML)
	TaxonomyDir string `envconfig:"TAXONOMY_DIR" default:"config/taxonomy"`
	SourcesFile string `envconfig:"SOURCES_FILE" default:"config/sources.yaml"`

	PubMedBaseURL  string `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey   string `envconfig:"PUBMED_API_KEY"`
	PubMedEmail    string `envconfig:"PUBMED_EMAIL" default:"admin@neuroedge.ai"`
	PubMedTool     string `envconfig:"PUBMED_TOOL" default:"NeuroEdgeFetcher"`
	PubMedPageSize int    `envconfig:"PUBMED_PAGE_SIZE" default:"100"`

	EuropePMCBaseURL string `envconfig:"EUROPEPMC_BASE_URL" default:"https://www.ebi.ac.uk/europepmc/webservices/rest"`

	// Unpaywall ist optional: ohne E-Mail keine Open-Access-Anreicherung
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`

	FetchLookbackDays int           `envconfig:"FETCH_LOOKBACK_DAYS" default:"7"`
	FetchConcurrency  int           `envconfig:"FETCH_CONCURRENCY" default:"5"`
	RSSTimeout        time.Duration `envconfig:"RSS_TIMEOUT" default:"15s"`

	ClassifyBatchSize  int `envconfig:"CLASSIFY_BATCH_SIZE" default:"100"`
	SummarizeBatchSize int `envconfig:"SUMMARIZE_BATCH_SIZE" default:"5"`

	// LLM-Backend: "openrouter" (OpenAI-kompatibel) oder "vertex"
	LLMBackend     string        `envconfig:"LLM_BACKEND" default:"openrouter"`
	LLMBaseURL     string        `envconfig:"LLM_BASE_URL" default:"https://openrouter.ai/api/v1"`
	LLMAPIKey      string        `envconfig:"LLM_API_KEY"`
	LLMModel       string        `envconfig:"LLM_MODEL" default:"mistralai/mistral-7b-instruct"`
	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	LLMMaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	LLMMaxRetries  int           `envconfig:"LLM_MAX_RETRIES" default:"3"`
	LLMRetryDelay  time.Duration `envconfig:"LLM_RETRY_DELAY" default:"5s"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	VertexProject  string        `envconfig:"VERTEX_PROJECT"`
	VertexRegion   string        `envconfig:"VERTEX_REGION" default:"us-central1"`

	FeedMaxCandidates int `envconfig:"FEED_MAX_CANDIDATES" default:"5000"`

	CronFetch     string `envconfig:"CRON_FETCH" default:"0 2 * * *"`
	CronClassify  string `envconfig:"CRON_CLASSIFY" default:"15 * * * *"`
	CronSummarize string `envconfig:"CRON_SUMMARIZE" default:"30 * * * *"`
	CronNotify    string `envconfig:"CRON_NOTIFY" default:"0 17 * * 5"`

	// SMTP ist optional: ohne Host werden Mails nur geloggt
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"NeuroEdge <noreply@neuroedge.ai>"`

	// S3-Archiv für rohe LLM-Antworten, optional
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled meldet, ob ein S3-Bucket konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != "" && c.S3URL != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
