/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

package httpindex

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff"
	"golang.org/x/net/html"
)

// indexClient reads plain HTML directory indexes: pages whose anchors
// point either at subdirectories (href ending in "/") or at data files.
type indexClient struct {
	hc         *http.Client
	maxRetries uint64
}

// get downloads one URL, retrying transport errors and 5xx responses with
// exponential backoff.
func (c *indexClient) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.hc.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			io.Copy(ioutil.Discard, resp.Body)
			return fmt.Errorf("httpindex: %s returned status %s", u, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("httpindex: %s returned status %s", u, resp.Status))
		}
		body, err = ioutil.ReadAll(resp.Body)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return body, nil
}

// links extracts the anchor targets of an index page, skipping query
// links, absolute links, and parent-directory links.
func (c *indexClient) links(ctx context.Context, dirURL string) ([]string, error) {
	body, err := c.get(ctx, dirURL)
	if err != nil {
		return nil, err
	}
	var out []string
	z := html.NewTokenizer(strings.NewReader(string(body)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return out, nil
			}
			return nil, fmt.Errorf("httpindex: parsing index %s: %v", dirURL, z.Err())
		}
		if tt != html.StartTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "href" {
				if href := string(val); validHref(href) {
					out = append(out, href)
				}
			}
			if !more {
				break
			}
		}
	}
}

// validHref reports whether an anchor target points at an entry of the
// index itself rather than a sort link or a parent directory.
func validHref(href string) bool {
	if href == "" || href == "/" || href == "../" {
		return false
	}
	if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "/") ||
		strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") ||
		strings.HasPrefix(href, "..") {
		return false
	}
	return true
}

// joinURL appends an index link to a directory URL.
func joinURL(dirURL, href string) string {
	return strings.TrimRight(dirURL, "/") + "/" + href
}

// isDir reports whether an index link names a subdirectory.
func isDir(href string) bool { return strings.HasSuffix(href, "/") }
