package career

// FallbackSource marks cards produced by the care-sector fallback generator.
const FallbackSource = "care_sector_fallback"

// FallbackCards returns a small static set of care-sector recommendations,
// used when extraction yields no cards at all so the client always has
// something actionable to show. The set is deduplicated by construction.
func FallbackCards(location string) []CareerCard {
	cards := []CareerCard{
		{
			Title:             "Care Assistant",
			Description:       "Support people with day-to-day living in residential homes or their own homes, helping with personal care, meals, and companionship.",
			Industry:          "Healthcare & Care",
			SalaryRange:       SalaryRange{Entry: "£18,000", Experienced: "£22,000", Senior: "£26,000"},
			GrowthOutlook:     "Strong and growing demand driven by an ageing population",
			EntryRequirements: []string{"No formal qualifications required", "Caring attitude and reliability"},
			TrainingPathways:  []string{"Care Certificate", "Level 2 Diploma in Care"},
			KeySkills:         []string{"Empathy", "Communication", "Patience"},
			WorkEnvironment:   "Residential care homes, domiciliary care",
			NextSteps:         []string{"Apply for trainee care assistant roles", "Complete the Care Certificate"},
			Confidence:        0.4,
		},
		{
			Title:             "Support Worker",
			Description:       "Help people with learning disabilities, mental health needs, or physical disabilities to live independently and take part in their communities.",
			Industry:          "Healthcare & Care",
			SalaryRange:       SalaryRange{Entry: "£19,000", Experienced: "£23,500", Senior: "£28,000"},
			GrowthOutlook:     "Consistently high vacancy rates across the sector",
			EntryRequirements: []string{"No formal qualifications required", "DBS check"},
			TrainingPathways:  []string{"Level 2 Diploma in Health and Social Care", "Specialist short courses"},
			KeySkills:         []string{"Active listening", "Problem solving", "Resilience"},
			WorkEnvironment:   "Supported living services, community outreach",
			NextSteps:         []string{"Volunteer with a local support charity", "Search support worker openings"},
			Confidence:        0.4,
		},
		{
			Title:             "Healthcare Assistant",
			Description:       "Work alongside nurses in hospitals and clinics, monitoring patients, taking observations, and assisting with clinical routines.",
			Industry:          "Healthcare & Care",
			SalaryRange:       SalaryRange{Entry: "£20,000", Experienced: "£24,000", Senior: "£29,000"},
			GrowthOutlook:     "Stable demand across hospital and community settings",
			EntryRequirements: []string{"Good literacy and numeracy", "Some care experience helpful"},
			TrainingPathways:  []string{"Healthcare support worker apprenticeship", "Functional skills courses"},
			KeySkills:         []string{"Attention to detail", "Teamwork", "Compassion"},
			WorkEnvironment:   "Hospitals, GP practices, clinics",
			NextSteps:         []string{"Apply for healthcare assistant bank roles", "Look into nursing associate routes"},
			Confidence:        0.4,
		},
	}

	for i := range cards {
		cards[i].Location = location
		cards[i].SourceData = FallbackSource
	}
	return EnsureIDs(cards)
}
