package models

// Actor identifies who triggers an engine operation. UserID is nil for
// system-originated work such as webhook ingestion.
type Actor struct {
	ClinicID string
	UserID   *string
}

func SystemActor(clinicID string) Actor {
	return Actor{ClinicID: clinicID}
}

func UserActor(clinicID, userID string) Actor {
	return Actor{ClinicID: clinicID, UserID: &userID}
}
