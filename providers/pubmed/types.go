// Package pubmed enthält die Logik für die Interaktion mit den NCBI E-Utilities.
package pubmed

// ESearchResponse repräsentiert die JSON-Antwort von ESearch für die ID-Suche.
type ESearchResponse struct {
	ESearchResult struct {
		IdList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// PubmedArticle repräsentiert einen einzelnen Artikel in der XML-Antwort.
type PubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    Markup `xml:"ArticleTitle"`
			Abstract struct {
				Text []AbstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []Author `xml:"AuthorList>Author"`
			Journal struct {
				Title   string  `xml:"Title"`
				PubDate PubDate `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			ELocationID []struct {
				IDType  string `xml:"EIdType,attr"`
				ValidYN string `xml:"ValidYN,attr"`
				Value   string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []struct {
			IDType string `xml:"IdType,attr"`
			Value  string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

// Markup hält den rohen Inhalt eines Elements inklusive Inline-Tags (<i>, <sup>).
type Markup struct {
	Inner string `xml:",innerxml"`
}

// AbstractText ist ein (ggf. beschrifteter) Abschnitt des Abstracts.
type AbstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

// Author ist ein Eintrag der AuthorList.
type Author struct {
	LastName       string `xml:"LastName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

// PubDate ist das Veröffentlichungsdatum wie in JournalIssue angegeben.
type PubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}
