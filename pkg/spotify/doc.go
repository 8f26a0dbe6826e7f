// Package spotify provides a client for the Spotify Web API.
//
// This package implements the subset of the Web API that melodiary
// depends on: the PKCE authorization flow for public clients, the
// user profile endpoint, and the paginated recently-played feed. It
// is designed to be usable as a standalone SDK.
//
// Example usage:
//
//	import "github.com/mbetts/melodiary/pkg/spotify"
//
//	client, err := spotify.NewClient(spotify.Config{
//	    ClientID:    "your-client-id",
//	    RedirectURI: "http://127.0.0.1:8080/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	verifier, err := spotify.NewVerifier()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	challenge := spotify.ChallengeS256(verifier)
//	fmt.Println("Authorize at:", client.AuthorizeURL(challenge))
package spotify
