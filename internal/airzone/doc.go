// Package airzone provides clients for the Airzone Cloud HVAC service.
//
// Airzone has shipped two incompatible generations of its cloud API and
// installations in the field run either one:
//
//   - Client (legacy): devices → systems → zones. A device is the Airzone
//     webserver unit, a system groups zones under one shared operating
//     mode, and a zone is the smallest controllable climate unit.
//   - CloudClient (current): installations → groups → devices. A group
//     shares one operating mode across its member devices.
//
// Both clients authenticate with the account username/password from
// configuration and hold the resulting token for the life of the process.
// All blocking calls take a context.Context; per-call timeouts come from
// the configured HTTP client.
//
// # Error Handling
//
// There are no retries and no error classification. Failures wrap the
// package sentinel errors and propagate to the caller:
//
//	client, err := airzone.NewClient(ctx, endpoint, user, pass, timeout)
//	if errors.Is(err, airzone.ErrAuthenticationFailed) { ... }
//
// # Thread Safety
//
// The clients themselves are safe for concurrent use. The vendor objects
// they return (Device, System, Zone, Installation, Group, CloudDevice)
// are not; callers serialise access, which the bridge's single poll loop
// guarantees.
package airzone
