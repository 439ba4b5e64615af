package service

import (
	"docvault/internal/config"
	"docvault/internal/identity"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// Repositories groups the persistence ports the core depends on.
type Repositories struct {
	Documents  repository.DocumentRepository
	Versions   repository.VersionRepository
	Shares     repository.ShareRepository
	Links      repository.PublicLinkRepository
	AccessLogs repository.AccessLogRepository
}

// Core is the assembled document core.
type Core struct {
	Ledger    *VersionLedger
	Resolver  *AccessResolver
	Audit     *AccessLogger
	Documents DocumentService
	Sharing   SharingService
}

// NewCore wires the ledger, resolver and access logger into the document
// and sharing services. Zero values in cfg fall back to package defaults.
func NewCore(repos Repositories, store storage.Storage, groups identity.Provider, cfg config.CoreConfig, opts ...Option) *Core {
	retention := cfg.SoftDeleteRetention
	if retention <= 0 {
		retention = DefaultSoftDeleteRetention
	}

	ledger := NewVersionLedger(repos.Documents, repos.Versions, cfg.VersionAppendRetries, opts...)
	resolver := NewAccessResolver(repos.Shares, repos.Links, groups, opts...)
	audit := NewAccessLogger(repos.AccessLogs, cfg.AuditTimeout, opts...)

	b := base{
		settings:  newSettings(opts),
		docs:      repos.Documents,
		audit:     audit,
		opTimeout: cfg.OpTimeout,
	}

	return &Core{
		Ledger:   ledger,
		Resolver: resolver,
		Audit:    audit,
		Documents: &documentService{
			base:      b,
			store:     store,
			shares:    repos.Shares,
			ledger:    ledger,
			resolver:  resolver,
			retention: retention,
		},
		Sharing: &sharingService{
			base:   b,
			shares: repos.Shares,
			links:  repos.Links,
		},
	}
}
