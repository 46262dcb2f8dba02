package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used by the chat machine, the scheduler and the HTTP handlers.
type ServiceContainer struct {
	Participants ParticipantSvc
	SplitRules   SplitRuleSvc
	Ledger       LedgerSvcFacade
	Recurring    RecurringSvc
	Corrections  CorrectionSvc
}
