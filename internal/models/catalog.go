package models

// CatalogMovie is one record from the external catalog. Never persisted;
// always sourced fresh from the catalog client.
type CatalogMovie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int64 `json:"genre_ids,omitempty"`
}

// CatalogPage is a paginated catalog listing.
type CatalogPage struct {
	Page         int            `json:"page"`
	Results      []CatalogMovie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// CatalogMovieDetails is the full record for a single title, fetched with
// credits appended.
type CatalogMovieDetails struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Runtime      int     `json:"runtime"`
	Genres       []Genre `json:"genres"`
	Credits      Credits `json:"credits"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type CastMember struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
}

type CrewMember struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	ProfilePath *string `json:"profile_path"`
}

// PersonRole selects which side of the credits a person discovery targets.
type PersonRole string

const (
	RoleCast     PersonRole = "cast"
	RoleDirector PersonRole = "director"
)
