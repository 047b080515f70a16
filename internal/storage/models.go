package storage

// Row types mirror the tables one to one. Dates are epoch milliseconds,
// money is integer cents and hours are integer hundredths.

type Project struct {
	ID          int64
	Name        string
	Client      string
	StartDate   int64
	AgreedCents int64
	Description string
	Active      bool
	SortRank    int64
}

type HourEntry struct {
	ID        int64
	ProjectID int64
	EntryDate int64
	HoursX100 int64
	Note      string
	SortRank  int64
}

type Expense struct {
	ID          int64
	ProjectID   int64
	EntryDate   int64
	AmountCents int64
	Note        string
	Category    string
	ReceiptRef  string
	SortRank    int64
}

type Payment struct {
	ID          int64
	ProjectID   int64
	EntryDate   int64
	AmountCents int64
	Note        string
	SortRank    int64
}
