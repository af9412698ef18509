package domain

const articleImageBase = "https://disasterscharter.org/cos-api/api/file/public/article-image/"

// PlaceholderActivations returns the built-in events used when a whole
// collection run sources nothing. Every event is flagged Synthetic.
func PlaceholderActivations() []DisasterEvent {
	now := Now()
	events := []DisasterEvent{
		{
			ActivationID: "placeholder-flood-1",
			Title:        "Placeholder flood activation",
			Location:     Location{Region: GlobalRegion},
			Metadata:     Metadata{DisasterTypes: []string{DisasterFlood}},
		},
		{
			ActivationID: "placeholder-flood-2",
			Title:        "Placeholder severe flooding activation",
			Location:     Location{Region: GlobalRegion},
			Metadata:     Metadata{DisasterTypes: []string{DisasterFlood}},
		},
	}
	for i := range events {
		events[i].DataSource = SourcePlaceholder
		events[i].CollectedAt = now
		events[i].DisasterType = ptr(DisasterFlood)
		events[i].Severity = ptr(SeverityFromTitle(events[i].Title))
		events[i].Synthetic = true
	}
	return events
}

// PlaceholderImages returns the built-in satellite images used when the
// quickviews listing yields nothing.
func PlaceholderImages() []SatelliteImageRecord {
	return []SatelliteImageRecord{
		{
			Title:       "Satellite Image - Flood Monitoring",
			Description: "Satellite imagery for flood monitoring and assessment",
			ImageURL:    articleImageBase + "sample1",
			Keywords:    "satellite, flood, monitoring",
			Synthetic:   true,
		},
		{
			Title:       "Satellite Image - Disaster Assessment",
			Description: "Satellite imagery for disaster impact assessment",
			ImageURL:    articleImageBase + "sample2",
			Keywords:    "satellite, disaster, assessment",
			Synthetic:   true,
		},
	}
}

// PlaceholderDocuments returns the built-in library documents used when the
// documents listing yields nothing.
func PlaceholderDocuments() []DocumentRecord {
	newsletter := func(issue, id string) DocumentRecord {
		return DocumentRecord{
			Title:       "Charter Newsletter: Issue " + issue,
			Description: "The " + issue + "th issue of the International Charter Newsletter describes recent Charter activities.",
			DocumentURL: articleImageBase + id,
			Keywords:    "newsletter, document",
		}
	}
	annual := func(year, ordinal, id string) DocumentRecord {
		return DocumentRecord{
			Title:       "Charter Annual Report - " + year,
			Description: "The " + ordinal + " annual report describes the activities of the International Charter in 20" + year + ".",
			DocumentURL: articleImageBase + id,
			Keywords:    "reports, document",
		}
	}

	docs := []DocumentRecord{
		newsletter("30", "32025905"),
		annual("23", "23rd", "25983038"),
		newsletter("29", "27140843"),
		newsletter("28", "25411169"),
		{
			Title:       "The International Charter Brand Guidelines",
			Description: "This document summarizes the brand guidelines the Charter follows.",
			DocumentURL: articleImageBase + "24771121",
			Keywords:    "document",
		},
		newsletter("27", "23259038"),
		annual("22", "22nd", "25500824"),
	}
	for i := range docs {
		docs[i].Priority = DocumentPriority(docs[i])
		docs[i].Synthetic = true
	}
	return docs
}
