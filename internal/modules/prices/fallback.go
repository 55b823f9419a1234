package prices

// fallbackQuote is a seed quote used until a price is set over the API or
// restored from cache.db.
type fallbackQuote struct {
	Symbol    string
	Name      string
	Price     string
	Change24h string
	Volume24h string
	MarketCap string
}

var fallbackQuotes = []fallbackQuote{
	{Symbol: "BTC", Name: "Bitcoin", Price: "45000", Change24h: "2.35", Volume24h: "28500000000", MarketCap: "880000000000"},
	{Symbol: "ETH", Name: "Ethereum", Price: "2500", Change24h: "1.82", Volume24h: "15200000000", MarketCap: "300000000000"},
	{Symbol: "SOL", Name: "Solana", Price: "100", Change24h: "4.10", Volume24h: "2100000000", MarketCap: "43000000000"},
	{Symbol: "XRP", Name: "XRP", Price: "0.62", Change24h: "-0.75", Volume24h: "1300000000", MarketCap: "33500000000"},
	{Symbol: "ADA", Name: "Cardano", Price: "0.45", Change24h: "-1.20", Volume24h: "420000000", MarketCap: "15800000000"},
	{Symbol: "DOGE", Name: "Dogecoin", Price: "0.08", Change24h: "0.95", Volume24h: "510000000", MarketCap: "11400000000"},
	{Symbol: "XAU", Name: "Gold", Price: "2034.50", Change24h: "0.32", Volume24h: "145000000000", MarketCap: "13600000000000"},
	{Symbol: "XAG", Name: "Silver", Price: "23.10", Change24h: "-0.44", Volume24h: "5200000000", MarketCap: "1300000000000"},
	{Symbol: "XPT", Name: "Platinum", Price: "905.00", Change24h: "0.12", Volume24h: "1100000000", MarketCap: "0"},
}
