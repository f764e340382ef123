package schema

// Table names, used as keys in inputs, error reports and metrics labels.
const (
	TableInfluencers = "influencers"
	TablePosts       = "posts"
	TableTracking    = "tracking_data"
	TablePayouts     = "payouts"
)

// UnattributedCampaign labels tracking rows that carry no campaign.
const UnattributedCampaign = "unattributed"

// TableNames lists the four inputs in reporting order.
var TableNames = []string{TableInfluencers, TablePosts, TableTracking, TablePayouts}

// Influencers is the roster contract.
var Influencers = Contract{
	Name: TableInfluencers,
	Fields: []Field{
		{Name: "id", Type: "text", Required: true},
		{Name: "name", Type: "text", Required: true},
		{Name: "category", Type: "text", Required: true},
		{Name: "gender", Type: "text", Required: true},
		{Name: "follower_count", Type: "int", Required: true, Default: int64(0)},
		{Name: "platform", Type: "text", Required: true},
	},
}

// Posts is validated for presence only. Headers are lower-cased on load, so
// the URL column is matched as "url" and reported as "URL".
var Posts = Contract{
	Name: TablePosts,
	Fields: []Field{
		{Name: "influencer_id", Type: "text", Required: true},
		{Name: "platform", Type: "text", Required: true},
		{Name: "date", Type: "date", Required: true},
		{Name: "url", Label: "URL", Type: "text", Required: true},
		{Name: "caption", Type: "text", Required: true},
		{Name: "reach", Type: "int", Required: true},
		{Name: "likes", Type: "int", Required: true},
		{Name: "comments", Type: "int", Required: true},
	},
}

// Tracking holds one conversion event per row. orders is optional.
var Tracking = Contract{
	Name: TableTracking,
	Fields: []Field{
		{Name: "source", Type: "text", Required: true},
		{Name: "campaign", Type: "text", Required: true, Default: UnattributedCampaign},
		{Name: "influencer_id", Type: "text", Required: true},
		{Name: "user_id", Type: "text", Required: true},
		{Name: "product", Type: "text", Required: true},
		{Name: "date", Type: "date", Required: true},
		{Name: "revenue", Type: "float", Required: true, Default: 0.0},
		{Name: "orders", Type: "float", Default: 0.0},
	},
}

// Payouts carries what each influencer was paid.
var Payouts = Contract{
	Name: TablePayouts,
	Fields: []Field{
		{Name: "influencer_id", Type: "text", Required: true},
		{Name: "basis", Type: "text", Required: true},
		{Name: "rate", Type: "text", Required: true},
		{Name: "total_payout", Type: "float", Required: true, Default: 0.0},
	},
}

// ContractFor returns the contract registered for a table name.
func ContractFor(name string) (Contract, bool) {
	switch name {
	case TableInfluencers:
		return Influencers, true
	case TablePosts:
		return Posts, true
	case TableTracking:
		return Tracking, true
	case TablePayouts:
		return Payouts, true
	}
	return Contract{}, false
}
