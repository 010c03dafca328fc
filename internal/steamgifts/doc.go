// Package steamgifts is the HTTP client for the giveaway site.
//
// Every request carries the session cookie from the requests file. Pages are
// parsed with golang.org/x/net/html and read through the CSS classes the
// site renders; nothing here executes JavaScript.
//
// Operations:
//   - CheckSession: verify the cookie belongs to a signed-in user
//   - AvailableGiveaways: scrape every open giveaway, a batch of pages at a time
//   - EnteredLinks: links of giveaways the user already entered and that are still open
//   - Enter: submit an entry through the ajax endpoint
//   - RemainingPoints: the user's point balance
//   - EnteredTitles: every title the user ever entered, for seeding the requests file
package steamgifts
