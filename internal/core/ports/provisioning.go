package ports

import "context"

// ProvisionInput is the job the sign-up trigger hands to the profile provisioner.
type ProvisionInput struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// ProfileProvisioner creates the profile for a freshly registered identity.
type ProfileProvisioner interface {
	Process(ctx context.Context, in ProvisionInput) error
}

// ProvisionQueue accepts provisioning jobs for asynchronous processing.
type ProvisionQueue interface {
	Enqueue(in ProvisionInput)
}
