package config

type WorkerKeyStruct struct {
	ConcessionAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ConcessionAuditQueue: "concession_audit_queue",
}
