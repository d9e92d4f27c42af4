package page

// PostCard renders a feed.PostView
var PostCard = TextPage{
	Name: "post",
	Template: `
[{{ .Badge }}] {{ .Post.Title }}
by {{ if .Post.Author.DisplayName }}{{ .Post.Author.DisplayName }}{{ else }}{{ .Post.Author.ID }}{{ end }}{{ if not .Post.Published.IsZero }} on {{ date .Post.Published }}{{ end }}
{{- if .Post.Description }}
{{ .Post.Description }}
{{- end }}

{{ indent "  " (content .Content) }}

{{ if .Liked }}liked{{ else }}likes{{ end }} {{ count .LikeCount }}  comments {{ count .CommentsNum }}
{{- if .CanShare }}  [share]{{ end }}
{{- if .CanEdit }}  [edit]{{ end }}
{{- if .CanDelete }}  [delete]{{ end }}
{{- range .Comments }}
  > {{ if .Author.DisplayName }}{{ .Author.DisplayName }}{{ else }}{{ .Author.ID }}{{ end }}: {{ .Comment }}
{{- end }}
id: {{ .Post.ID }}`,
}

// ProfileHeader renders a *profile.Profile
var ProfileHeader = TextPage{
	Name: "profile",
	Template: `
{{ .Author.DisplayName }}{{ if .Author.Github }} ({{ .Author.Github }}){{ end }}
{{ .Author.ID }}
followers {{ count .Followers }}  following {{ count .Following }}  friends {{ count .Friends }}
relationship: {{ .Relationship }}
{{- if .Actions.CanEditProfile }}  [edit profile]{{ end }}
{{- if .Actions.CanFollow }}  [follow]{{ end }}
{{- if .Actions.CanUnfollow }}  [unfollow]{{ end }}
{{- if .Actions.CanCancelRequest }}  [cancel request]{{ end }}`,
}

// FollowRequests renders a []api.Author of pending requests
var FollowRequests = TextPage{
	Name: "requests",
	Template: `
{{- if not . }}no pending follow requests{{ end }}
{{- range . }}
{{ if .DisplayName }}{{ .DisplayName }}{{ else }}(unnamed){{ end }} wants to follow you ({{ .ID }})
{{- end }}`,
}

// AuthorList renders search results and follower lists
var AuthorList = TextPage{
	Name: "authors",
	Template: `
{{- if not . }}no authors found{{ end }}
{{- range . }}
{{ if .DisplayName }}{{ .DisplayName }}{{ else }}(unnamed){{ end }}  {{ .ID }}
{{- end }}`,
}
