package constants

import (
	"time"
)

// NCBI endpoints
const (
	// EUtilsBaseURL is the base URL for the NCBI Entrez EUtils services.
	// Individual tools (efetch.fcgi, esearch.fcgi, ...) are appended to it.
	EUtilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// GenomesBaseURL is the base of the NCBI genomes tree. Assembly summary
	// manifests and per-assembly directories live under it.
	GenomesBaseURL = "https://ftp.ncbi.nlm.nih.gov/genomes"

	// PlastidAccessionListURL is the default accession list for the plastid
	// batch fetcher (one record per line, accession in the first column).
	PlastidAccessionListURL = "https://ftp.ncbi.nlm.nih.gov/genomes/GENOME_REPORTS/plastids/plastids.txt"
)

// Manifest cache policy
const (
	// ManifestMaxAge - a cached assembly summary older than this is
	// re-downloaded before use. Matches NCBI's daily regeneration cycle.
	ManifestMaxAge = 24 * time.Hour
)

// Record classification
const (
	// EmptyThreshold - an EUtils response body below this many bytes is
	// classified as an empty result rather than a real record. EUtils
	// returns a bare newline for unknown identifiers.
	EmptyThreshold = 2
)

// HTTP client tuning
const (
	// HTTPDialTimeout - timeout for establishing TCP connections
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for established connections
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay in the pool
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - extended for slow networks
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - for HTTP 100-continue
	HTTPExpectContinueTimeout = 5 * time.Second

	// HTTPRequestTimeout - overall timeout for small metadata requests
	// (accession lists, checksum manifests). File transfers run without an
	// overall timeout and rely on context cancellation instead.
	HTTPRequestTimeout = 300 * time.Second
)

// Retry policy for transfers
const (
	// TransferRetryMax - maximum retry attempts per request
	TransferRetryMax = 5

	// TransferRetryWaitMin - initial backoff between retries
	TransferRetryWaitMin = 1 * time.Second

	// TransferRetryWaitMax - backoff ceiling between retries
	TransferRetryWaitMax = 30 * time.Second
)

// S3 mirror defaults. The NCBI genomes tree is mirrored into an open-data
// bucket that allows anonymous access.
const (
	// MirrorBucket - open-data bucket holding the genomes tree mirror
	MirrorBucket = "ncbi-genomes"

	// MirrorRegion - region the open-data bucket lives in
	MirrorRegion = "us-east-1"
)
