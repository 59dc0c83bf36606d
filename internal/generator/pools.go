package generator

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
	"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Charles", "Karen", "Daniel", "Nancy", "Matthew", "Lisa",
	"Anthony", "Betty", "Mark", "Sandra", "Steven", "Ashley", "Andrew", "Emily",
	"Kevin", "Michelle", "Brian", "Amanda", "Jason", "Melissa", "Ryan", "Laura",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
	"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
	"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker", "Young",
	"Allen", "King", "Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
}

var consumerDomains = []string{"gmail.com", "yahoo.com", "icloud.com", "outlook.com"}

var homeOfficeDomains = []string{"gmail.com", "freelance.com", "consultant.com", "proton.me"}

var companyDomains = []string{
	"techstartup.com", "lawfirm.com", "consulting.com", "healthcare.com", "finance.com",
	"agency.com", "realestate.com", "startup.com", "nonprofit.org",
}

type city struct {
	Name  string
	State string
}

type region struct {
	Name   string
	Weight float64
	Cities []city
}

var regions = []region{
	{Name: "West Coast", Weight: 20, Cities: []city{
		{"Los Angeles", "CA"}, {"San Francisco", "CA"}, {"San Diego", "CA"}, {"San Jose", "CA"},
		{"Portland", "OR"}, {"Eugene", "OR"}, {"Seattle", "WA"}, {"Spokane", "WA"},
	}},
	{Name: "East Coast", Weight: 20, Cities: []city{
		{"New York", "NY"}, {"Buffalo", "NY"}, {"Boston", "MA"}, {"Philadelphia", "PA"},
		{"Pittsburgh", "PA"}, {"Miami", "FL"}, {"Orlando", "FL"}, {"Atlanta", "GA"},
	}},
	{Name: "Midwest", Weight: 20, Cities: []city{
		{"Chicago", "IL"}, {"Detroit", "MI"}, {"Ann Arbor", "MI"}, {"Columbus", "OH"},
		{"Cleveland", "OH"}, {"Minneapolis", "MN"},
	}},
	{Name: "South", Weight: 20, Cities: []city{
		{"Austin", "TX"}, {"Houston", "TX"}, {"Dallas", "TX"}, {"Charlotte", "NC"},
		{"Raleigh", "NC"}, {"Nashville", "TN"}, {"New Orleans", "LA"},
	}},
	{Name: "Mountain", Weight: 20, Cities: []city{
		{"Phoenix", "AZ"}, {"Las Vegas", "NV"}, {"Denver", "CO"}, {"Boulder", "CO"},
		{"Salt Lake City", "UT"},
	}},
}

func regionWeights() []float64 {
	out := make([]float64, len(regions))
	for i, r := range regions {
		out[i] = r.Weight
	}
	return out
}
