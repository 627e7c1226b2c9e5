package lead

type Source string

const (
	SourceWhatsApp  Source = "whatsapp"
	SourceInstagram Source = "instagram"
	SourceSite      Source = "site"
	SourceGoogleAds Source = "google_ads"
	SourceReferral  Source = "indicacao"
	SourcePhone     Source = "telefone"
	SourceWalkIn    Source = "presencial"
	SourceManual    Source = "manual"
	SourceMetaAds   Source = "meta_ads"
)

func (s Source) Valid() bool {
	switch s {
	case SourceWhatsApp, SourceInstagram, SourceSite, SourceGoogleAds,
		SourceReferral, SourcePhone, SourceWalkIn, SourceManual, SourceMetaAds:
		return true
	}
	return false
}
