package config

// API connection.
const (
	APIBaseURL    = "api.base_url"
	APINetworkURL = "api.network_url"
	APIUploadsURL = "api.uploads_url"
	APIRateLimit  = "api.rate_limit"
	APIPageSize   = "api.page_size"
	APITimeout    = "api.timeout"
)

// Chapter downloads.
const (
	DownloadDir               = "download.dir"
	DownloadWorkers           = "download.workers"
	DownloadMaxNodeRetries    = "download.max_node_retries"
	DownloadDataSaver         = "download.data_saver"
	DownloadForcePort443      = "download.force_port_443"
	DownloadLanguage          = "download.language"
	DownloadExcludedUploaders = "download.excluded_uploaders"
)

const (
	LibraryPath = "library.path"

	EPUBDir    = "epub.dir"
	EPUBDevice = "epub.device"
)

const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJSON  = "logs.json"
)
