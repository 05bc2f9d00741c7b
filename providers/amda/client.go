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

package amda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/cenkalti/backoff"
)

// restClient issues requests against the AMDA REST entry point
// (http://amda.irap.omp.eu/help/apidoc/). Transient transport failures are
// retried with bounded exponential backoff; this is the only layer that
// retries anything.
type restClient struct {
	entryPoint string
	hc         *http.Client
	maxRetries uint64
}

// dataResponse is the JSON envelope returned by getDataset.php,
// getParameter.php, and getStatus.php. Synchronous requests carry the
// result file URL directly; batch requests report an in-progress status
// and a process id to poll.
type dataResponse struct {
	Success      bool   `json:"success"`
	DataFileURLs string `json:"dataFileURLs"`
	Status       string `json:"status"`
	ID           string `json:"id"`
	Message      string `json:"message"`
}

const statusInProgress = "in progress"

// get issues one GET against an entry-point method, retrying transport
// errors and 5xx responses, and returns the response body.
func (c *restClient) get(ctx context.Context, method string, params url.Values) ([]byte, error) {
	u := strings.TrimRight(c.entryPoint, "/") + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.getURL(ctx, u)
}

// getURL issues one GET against an absolute URL with the same retry
// policy as get. It is also used for result file downloads, which live on
// a different host than the entry point.
func (c *restClient) getURL(ctx context.Context, u string) ([]byte, error) {
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
			return fmt.Errorf("amda: %s returned status %s", u, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("amda: %s returned status %s", u, resp.Status))
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

// getJSON issues get and decodes the dataResponse envelope.
func (c *restClient) getJSON(ctx context.Context, method string, params url.Values) (*dataResponse, error) {
	body, err := c.get(ctx, method, params)
	if err != nil {
		return nil, err
	}
	r := new(dataResponse)
	if err := json.Unmarshal(body, r); err != nil {
		return nil, fmt.Errorf("amda: decoding %s response: %v", method, err)
	}
	return r, nil
}

// authToken requests a fresh API token from auth.php. The token is
// returned as plain text.
func (c *restClient) authToken(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "auth.php", nil)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("amda: auth.php returned an empty token")
	}
	return token, nil
}

// isAlive reports whether the AMDA web services respond.
func (c *restClient) isAlive(ctx context.Context) (bool, error) {
	body, err := c.get(ctx, "isAlive.php", nil)
	if err != nil {
		return false, err
	}
	var r struct {
		Alive bool `json:"alive"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return false, fmt.Errorf("amda: decoding isAlive response: %v", err)
	}
	return r.Alive, nil
}

// obsDataTreeURL asks getObsDataTree.php for the URL of the observatory
// tree document. The response is a one-element XML document whose text is
// the URL.
func (c *restClient) obsDataTreeURL(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "getObsDataTree.php", nil)
	if err != nil {
		return "", err
	}
	u := textBetween(string(body), "LocalDataBaseParameters")
	if u == "" {
		return "", fmt.Errorf("amda: getObsDataTree response carries no tree URL")
	}
	return strings.TrimSpace(u), nil
}

// parameterListURL asks getParameterList.php for the URL of a user's
// parameter listing document. local selects the public database listing
// instead of the user's derived parameters.
func (c *restClient) parameterListURL(ctx context.Context, userID, password string, local bool) (string, error) {
	params := url.Values{}
	if userID != "" {
		params.Set("userID", userID)
		params.Set("password", password)
	}
	body, err := c.get(ctx, "getParameterList.php", params)
	if err != nil {
		return "", err
	}
	tag := "UserDefinedParameters"
	if local {
		tag = "LocalDataBaseParameters"
	}
	u := textBetween(string(body), tag)
	if u == "" {
		return "", fmt.Errorf("amda: getParameterList response carries no %s URL", tag)
	}
	return strings.TrimSpace(u), nil
}

// timeTable fetches the contents of a time table. Without a user id the
// shared tables are searched.
func (c *restClient) timeTable(ctx context.Context, ttID, userID, password string) ([]byte, error) {
	params := url.Values{"ttID": {ttID}}
	if userID != "" {
		params.Set("userID", userID)
		params.Set("password", password)
	}
	body, err := c.get(ctx, "getTimeTable.php", params)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("amda: time table %s is empty or unknown", ttID)
	}
	return body, nil
}

// textBetween extracts the text content of the first <tag>...</tag>
// element in doc, without requiring the document around it to be
// well-formed (the listing endpoints wrap URLs in fragmentary XML).
func textBetween(doc, tag string) string {
	re := regexp.MustCompile("<" + tag + ">(.*?)</" + tag + ">")
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return m[1]
}
