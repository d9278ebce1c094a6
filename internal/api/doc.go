// Package api is the HTTP adapter over a ledger.Ledger.
//
// Routes:
//
//	POST /api/prov?action=record   {"subj","obj"}                    -> {"success":true,"record":{...}}
//	POST /api/prov?action=verify   {"hash","proof","publicSignals"}  -> {"valid":bool}
//	POST /api/prov?action=chain    {"uri"}                           -> {"chain":[...]}
//	POST /api/prov?action=reprove  {"hash"}                          -> {"success":true,"record":{...}}
//	GET  /api/prov                                                   -> 405
//	GET  /healthz
//	GET  /metrics
//
// Errors are {"error": message, "code": ledger error code}.
package api
